// Package metaplex decodes Metaplex token-metadata accounts and maps them
// into normalized domain.Metadata records.
package metaplex

import (
	"solana-nft-kit/internal/solana"
)

// TokenMetadataProgramID is the Metaplex token-metadata program
// (devnet and mainnet share it).
var TokenMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// Account is the byte-decoded on-chain metadata record, before mapping.
// Field order follows the program's borsh layout.
type Account struct {
	Key                 uint8
	UpdateAuthority     solana.PublicKey
	Mint                solana.PublicKey
	Data                Data
	PrimarySaleHappened bool
	IsMutable           bool
	EditionNonce        *uint8
	TokenStandard       *uint8
	Collection          *Collection
	Uses                *Uses
	CollectionDetails   *CollectionDetails
}

// Data holds the inner asset data struct.
type Data struct {
	Name                 string // fixed-width on-chain, NUL padded
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator
}

// Creator is a royalty recipient as stored on-chain.
type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

// Collection links to the collection NFT. Verified precedes the key in the
// byte layout.
type Collection struct {
	Verified bool
	Key      solana.PublicKey
}

// Uses is the on-chain consumable usage counter.
type Uses struct {
	UseMethod uint8
	Remaining uint64
	Total     uint64
}

// CollectionDetails is a borsh enum; V1 is the only variant.
type CollectionDetails struct {
	Kind string // "V1"
	Size uint64
}

// FindMetadataAddress derives the metadata PDA for a mint: seeds are the
// literal "metadata", the token-metadata program id, and the mint key.
func FindMetadataAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			TokenMetadataProgramID.Bytes(),
			mint.Bytes(),
		},
		TokenMetadataProgramID,
	)
}
