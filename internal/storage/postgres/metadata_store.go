package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-nft-kit/internal/domain"
	"solana-nft-kit/internal/solana"
	"solana-nft-kit/internal/storage"
)

// MetadataStore implements storage.MetadataStore using PostgreSQL.
// It indexes mapped metadata records by mint.
type MetadataStore struct {
	pool *Pool
}

// NewMetadataStore creates a new MetadataStore.
func NewMetadataStore(pool *Pool) *MetadataStore {
	return &MetadataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetadataStore = (*MetadataStore)(nil)

// creatorRow is the JSONB shape for one creator.
type creatorRow struct {
	Address  string `json:"address"`
	Verified bool   `json:"verified"`
	Share    uint8  `json:"share"`
}

// collectionDetailsRow is the JSONB shape for collection details.
type collectionDetailsRow struct {
	Version string `json:"version"`
	Size    uint64 `json:"size"`
}

// usesRow is the JSONB shape for uses.
type usesRow struct {
	UseMethod uint8  `json:"use_method"`
	Remaining uint64 `json:"remaining"`
	Total     uint64 `json:"total"`
}

// Insert adds a mapped record. Returns ErrDuplicateKey if the mint is
// already indexed.
func (s *MetadataStore) Insert(ctx context.Context, m *domain.Metadata) error {
	if m == nil || m.Model != domain.MetadataModel {
		return storage.ErrInvalidInput
	}

	creators := make([]creatorRow, 0, len(m.Creators))
	for _, c := range m.Creators {
		creators = append(creators, creatorRow{
			Address:  c.Address.String(),
			Verified: c.Verified,
			Share:    c.Share,
		})
	}
	creatorsJSON, err := json.Marshal(creators)
	if err != nil {
		return fmt.Errorf("marshal creators: %w", err)
	}

	var tokenStandard *int16
	if m.TokenStandard != nil {
		v := int16(*m.TokenStandard)
		tokenStandard = &v
	}
	var editionNonce *int16
	if m.EditionNonce != nil {
		v := int16(*m.EditionNonce)
		editionNonce = &v
	}

	var collectionAddress *string
	var collectionVerified *bool
	if m.Collection != nil {
		addr := m.Collection.Address.String()
		collectionAddress = &addr
		collectionVerified = &m.Collection.Verified
	}

	var detailsJSON []byte
	if m.CollectionDetails != nil {
		detailsJSON, err = json.Marshal(collectionDetailsRow{
			Version: m.CollectionDetails.Version,
			Size:    m.CollectionDetails.Size.Uint64(),
		})
		if err != nil {
			return fmt.Errorf("marshal collection details: %w", err)
		}
	}

	var uJSON []byte
	if m.Uses != nil {
		uJSON, err = json.Marshal(usesRow{
			UseMethod: uint8(m.Uses.UseMethod),
			Remaining: m.Uses.Remaining.Uint64(),
			Total:     m.Uses.Total.Uint64(),
		})
		if err != nil {
			return fmt.Errorf("marshal uses: %w", err)
		}
	}

	var doc []byte
	if m.JSONLoaded && m.JSON != nil {
		doc = m.JSON
	}

	query := `
		INSERT INTO nft_metadata (
			mint, metadata_address, update_authority,
			name, symbol, uri,
			seller_fee_basis_points, primary_sale_happened, is_mutable,
			edition_nonce, token_standard,
			collection_address, collection_verified,
			collection_details, uses, creators,
			json, json_loaded, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = s.pool.Exec(ctx, query,
		m.MintAddress.String(),
		m.Address.String(),
		m.UpdateAuthorityAddress.String(),
		m.Name,
		m.Symbol,
		m.URI,
		int32(m.SellerFeeBasisPoints),
		m.PrimarySaleHappened,
		m.IsMutable,
		editionNonce,
		tokenStandard,
		collectionAddress,
		collectionVerified,
		detailsJSON,
		uJSON,
		creatorsJSON,
		doc,
		m.JSONLoaded,
		time.Now().UnixMilli(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert metadata: %w", err)
	}
	return nil
}

const metadataColumns = `
	mint, metadata_address, update_authority,
	name, symbol, uri,
	seller_fee_basis_points, primary_sale_happened, is_mutable,
	edition_nonce, token_standard,
	collection_address, collection_verified,
	collection_details, uses, creators,
	json, json_loaded
`

// GetByMint retrieves the indexed record for a mint.
// Returns ErrNotFound if not exists.
func (s *MetadataStore) GetByMint(ctx context.Context, mint string) (*domain.Metadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM nft_metadata WHERE mint = $1`

	row := s.pool.QueryRow(ctx, query, mint)
	m, err := scanMetadata(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get metadata by mint: %w", err)
	}
	return m, nil
}

// ListRecent retrieves the most recently indexed records, newest first.
func (s *MetadataStore) ListRecent(ctx context.Context, limit int) ([]*domain.Metadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM nft_metadata ORDER BY created_at DESC, mint DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent metadata: %w", err)
	}
	defer rows.Close()

	var records []*domain.Metadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

// scanMetadata scans a single row back into a domain.Metadata.
func scanMetadata(row pgx.Row) (*domain.Metadata, error) {
	var (
		mint, address, authority string
		sellerFee                int32
		editionNonce             *int16
		tokenStandard            *int16
		collectionAddress        *string
		collectionVerified       *bool
		detailsJSON, uJSON       []byte
		creatorsJSON             []byte
		doc                      []byte
	)

	m := &domain.Metadata{Model: domain.MetadataModel}

	err := row.Scan(
		&mint, &address, &authority,
		&m.Name, &m.Symbol, &m.URI,
		&sellerFee, &m.PrimarySaleHappened, &m.IsMutable,
		&editionNonce, &tokenStandard,
		&collectionAddress, &collectionVerified,
		&detailsJSON, &uJSON, &creatorsJSON,
		&doc, &m.JSONLoaded,
	)
	if err != nil {
		return nil, err
	}

	if m.MintAddress, err = solana.PublicKeyFromBase58(mint); err != nil {
		return nil, fmt.Errorf("parse mint: %w", err)
	}
	if m.Address, err = solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("parse metadata address: %w", err)
	}
	if m.UpdateAuthorityAddress, err = solana.PublicKeyFromBase58(authority); err != nil {
		return nil, fmt.Errorf("parse update authority: %w", err)
	}

	m.SellerFeeBasisPoints = uint16(sellerFee)

	if editionNonce != nil {
		v := uint8(*editionNonce)
		m.EditionNonce = &v
	}
	if tokenStandard != nil {
		v := domain.TokenStandard(*tokenStandard)
		m.TokenStandard = &v
	}

	if collectionAddress != nil {
		key, err := solana.PublicKeyFromBase58(*collectionAddress)
		if err != nil {
			return nil, fmt.Errorf("parse collection address: %w", err)
		}
		verified := collectionVerified != nil && *collectionVerified
		m.Collection = &domain.Collection{Address: key, Verified: verified}
	}

	if len(detailsJSON) > 0 {
		var details collectionDetailsRow
		if err := json.Unmarshal(detailsJSON, &details); err != nil {
			return nil, fmt.Errorf("unmarshal collection details: %w", err)
		}
		m.CollectionDetails = &domain.CollectionDetails{
			Version: details.Version,
			Size:    domain.AmountFromUint64(details.Size),
		}
	}

	if len(uJSON) > 0 {
		var uses usesRow
		if err := json.Unmarshal(uJSON, &uses); err != nil {
			return nil, fmt.Errorf("unmarshal uses: %w", err)
		}
		m.Uses = &domain.Uses{
			UseMethod: domain.UseMethod(uses.UseMethod),
			Remaining: domain.AmountFromUint64(uses.Remaining),
			Total:     domain.AmountFromUint64(uses.Total),
		}
	}

	m.Creators = []domain.Creator{}
	if len(creatorsJSON) > 0 {
		var creators []creatorRow
		if err := json.Unmarshal(creatorsJSON, &creators); err != nil {
			return nil, fmt.Errorf("unmarshal creators: %w", err)
		}
		for _, c := range creators {
			key, err := solana.PublicKeyFromBase58(c.Address)
			if err != nil {
				return nil, fmt.Errorf("parse creator address: %w", err)
			}
			m.Creators = append(m.Creators, domain.Creator{
				Address:  key,
				Verified: c.Verified,
				Share:    c.Share,
			})
		}
	}

	if len(doc) > 0 {
		m.JSON = doc
	}

	return m, nil
}
