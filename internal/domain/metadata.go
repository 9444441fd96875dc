package domain

import (
	"encoding/json"

	"solana-nft-kit/internal/solana"
)

// MetadataModel is the model discriminant carried by every Metadata value.
const MetadataModel = "metadata"

// Metadata is the normalized, immutable view of an on-chain token metadata
// account, optionally enriched with its off-chain JSON document.
// Constructed once per account fetch and never mutated; a fresh fetch + map
// supersedes it.
type Metadata struct {
	Model string // always MetadataModel

	// Address is the metadata PDA, re-derived from MintAddress rather than
	// trusted from the decoded account.
	Address                solana.PublicKey
	MintAddress            solana.PublicKey
	UpdateAuthorityAddress solana.PublicKey

	// JSON is the off-chain document referenced by URI. Meaningless unless
	// JSONLoaded is true; JSONLoaded true with nil JSON means the fetch was
	// attempted but the document is absent or invalid.
	JSON       json.RawMessage
	JSONLoaded bool

	Name   string // trailing NUL padding stripped
	Symbol string
	URI    string

	// IsMutable false means no further on-chain update is possible.
	// Documented invariant only, not enforced here.
	IsMutable            bool
	PrimarySaleHappened  bool
	SellerFeeBasisPoints uint16 // basis points, 0..10000

	EditionNonce  *uint8
	Creators      []Creator // empty, never nil, when the account carries none
	TokenStandard *TokenStandard

	Collection        *Collection
	CollectionDetails *CollectionDetails
	Uses              *Uses
}

// Creator is a royalty recipient. Shares should sum to 100 across a non-empty
// creator list; upheld on-chain, not validated here.
type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8 // 0..100
}

// TokenStandard classifies the asset kind.
type TokenStandard uint8

const (
	TokenStandardNonFungible             TokenStandard = 0
	TokenStandardFungibleAsset           TokenStandard = 1
	TokenStandardFungible                TokenStandard = 2
	TokenStandardNonFungibleEdition      TokenStandard = 3
	TokenStandardProgrammableNonFungible TokenStandard = 4
)

// String returns the human-readable standard name.
func (s TokenStandard) String() string {
	switch s {
	case TokenStandardNonFungible:
		return "NonFungible"
	case TokenStandardFungibleAsset:
		return "FungibleAsset"
	case TokenStandardFungible:
		return "Fungible"
	case TokenStandardNonFungibleEdition:
		return "NonFungibleEdition"
	case TokenStandardProgrammableNonFungible:
		return "ProgrammableNonFungible"
	default:
		return "Unknown"
	}
}

// Collection links an asset to its collection NFT.
type Collection struct {
	Address  solana.PublicKey
	Verified bool
}

// CollectionDetails is a tagged variant; only V1 exists today.
type CollectionDetails struct {
	Version string // "V1"
	Size    Amount
}

// CollectionDetailsV1 is the only known collection details version.
const CollectionDetailsV1 = "V1"

// UseMethod describes how uses are consumed.
type UseMethod uint8

const (
	UseMethodBurn     UseMethod = 0
	UseMethodMultiple UseMethod = 1
	UseMethodSingle   UseMethod = 2
)

// String returns the human-readable use method name.
func (m UseMethod) String() string {
	switch m {
	case UseMethodBurn:
		return "Burn"
	case UseMethodMultiple:
		return "Multiple"
	case UseMethodSingle:
		return "Single"
	default:
		return "Unknown"
	}
}

// Uses tracks consumable asset usage. Remaining <= Total is assumed upheld
// on-chain.
type Uses struct {
	UseMethod UseMethod
	Remaining Amount
	Total     Amount
}
