package metaplex

import (
	"encoding/json"
	"errors"
	"strings"

	"solana-nft-kit/internal/domain"
)

// ErrNotMetadata is returned by AssertMetadata for values that are not
// Metadata records.
var ErrNotMetadata = errors.New("value is not a Metadata record")

// ToMetadata maps a decoded account into a Metadata record with no off-chain
// document attached: JSONLoaded is false and JSON is nil.
// Pure and total over well-formed input.
func ToMetadata(acct *Account) domain.Metadata {
	return mapAccount(acct, nil, false)
}

// ToMetadataWithJSON maps a decoded account together with an already-fetched
// off-chain document. JSONLoaded is true even when doc is nil, which records
// that the fetch was attempted but the document is absent or invalid.
func ToMetadataWithJSON(acct *Account, doc json.RawMessage) domain.Metadata {
	return mapAccount(acct, doc, true)
}

func mapAccount(acct *Account, doc json.RawMessage, jsonLoaded bool) domain.Metadata {
	// Re-derive the address from the mint, never trusting the input. A
	// viable bump always exists for these seeds.
	address, _, _ := FindMetadataAddress(acct.Mint)

	m := domain.Metadata{
		Model:                  domain.MetadataModel,
		Address:                address,
		MintAddress:            acct.Mint,
		UpdateAuthorityAddress: acct.UpdateAuthority,
		JSON:                   doc,
		JSONLoaded:             jsonLoaded,
		Name:                   trimPadding(acct.Data.Name),
		Symbol:                 trimPadding(acct.Data.Symbol),
		URI:                    trimPadding(acct.Data.URI),
		IsMutable:              acct.IsMutable,
		PrimarySaleHappened:    acct.PrimarySaleHappened,
		SellerFeeBasisPoints:   acct.Data.SellerFeeBasisPoints,
		EditionNonce:           acct.EditionNonce,
		Creators:               []domain.Creator{},
	}
	if !jsonLoaded {
		m.JSON = nil
	}

	if acct.Data.Creators != nil {
		m.Creators = make([]domain.Creator, 0, len(*acct.Data.Creators))
		for _, c := range *acct.Data.Creators {
			m.Creators = append(m.Creators, domain.Creator{
				Address:  c.Address,
				Verified: c.Verified,
				Share:    c.Share,
			})
		}
	}

	if acct.TokenStandard != nil {
		standard := domain.TokenStandard(*acct.TokenStandard)
		m.TokenStandard = &standard
	}

	if acct.Collection != nil {
		m.Collection = &domain.Collection{
			Address:  acct.Collection.Key,
			Verified: acct.Collection.Verified,
		}
	}

	if acct.CollectionDetails != nil {
		m.CollectionDetails = &domain.CollectionDetails{
			Version: acct.CollectionDetails.Kind,
			Size:    domain.AmountFromUint64(acct.CollectionDetails.Size),
		}
	}

	if acct.Uses != nil {
		m.Uses = &domain.Uses{
			UseMethod: domain.UseMethod(acct.Uses.UseMethod),
			Remaining: domain.AmountFromUint64(acct.Uses.Remaining),
			Total:     domain.AmountFromUint64(acct.Uses.Total),
		}
	}

	return m
}

// trimPadding strips the trailing NULs left by fixed-width on-chain string
// fields.
func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00")
}

// IsMetadata reports whether v is a Metadata record, by value or pointer.
func IsMetadata(v any) bool {
	switch m := v.(type) {
	case domain.Metadata:
		return m.Model == domain.MetadataModel
	case *domain.Metadata:
		return m != nil && m.Model == domain.MetadataModel
	default:
		return false
	}
}

// AssertMetadata narrows a value of unknown provenance to a Metadata record.
// Fails with ErrNotMetadata exactly when IsMetadata returns false.
func AssertMetadata(v any) (*domain.Metadata, error) {
	if !IsMetadata(v) {
		return nil, ErrNotMetadata
	}
	switch m := v.(type) {
	case domain.Metadata:
		return &m, nil
	case *domain.Metadata:
		return m, nil
	}
	return nil, ErrNotMetadata
}
