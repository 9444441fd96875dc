package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-nft-kit/internal/domain"
	"solana-nft-kit/internal/solana"
	"solana-nft-kit/internal/storage"
)

var (
	testMint      = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	testAuthority = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	testMetaAddr  = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

func makeMetadata(mint solana.PublicKey) *domain.Metadata {
	ts := domain.TokenStandardNonFungible
	return &domain.Metadata{
		Model:                  domain.MetadataModel,
		Address:                testMetaAddr,
		MintAddress:            mint,
		UpdateAuthorityAddress: testAuthority,
		Name:                   "Degen Ape #1",
		Symbol:                 "DAPE",
		URI:                    "https://arweave.net/abc123",
		SellerFeeBasisPoints:   500,
		IsMutable:              true,
		PrimarySaleHappened:    false,
		EditionNonce:           ptr(uint8(254)),
		TokenStandard:          &ts,
		Creators: []domain.Creator{
			{Address: testAuthority, Verified: true, Share: 100},
		},
		Collection: &domain.Collection{
			Address:  testMetaAddr,
			Verified: true,
		},
		CollectionDetails: &domain.CollectionDetails{
			Version: domain.CollectionDetailsV1,
			Size:    domain.AmountFromUint64(10000),
		},
		Uses: &domain.Uses{
			UseMethod: domain.UseMethodMultiple,
			Remaining: domain.AmountFromUint64(3),
			Total:     domain.AmountFromUint64(5),
		},
		JSON:       json.RawMessage(`{"name":"Degen Ape #1","image":"https://arweave.net/img"}`),
		JSONLoaded: true,
	}
}

func TestMetadataStore_InsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMetadataStore(pool)

	m := makeMetadata(testMint)
	require.NoError(t, store.Insert(ctx, m))

	got, err := store.GetByMint(ctx, testMint.String())
	require.NoError(t, err)

	assert.Equal(t, domain.MetadataModel, got.Model)
	assert.True(t, got.MintAddress.Equals(m.MintAddress))
	assert.True(t, got.Address.Equals(m.Address))
	assert.True(t, got.UpdateAuthorityAddress.Equals(m.UpdateAuthorityAddress))
	assert.Equal(t, m.Name, got.Name)
	assert.Equal(t, m.Symbol, got.Symbol)
	assert.Equal(t, m.URI, got.URI)
	assert.Equal(t, m.SellerFeeBasisPoints, got.SellerFeeBasisPoints)
	assert.Equal(t, m.IsMutable, got.IsMutable)
	assert.Equal(t, m.PrimarySaleHappened, got.PrimarySaleHappened)

	require.NotNil(t, got.EditionNonce)
	assert.Equal(t, uint8(254), *got.EditionNonce)
	require.NotNil(t, got.TokenStandard)
	assert.Equal(t, domain.TokenStandardNonFungible, *got.TokenStandard)

	require.Len(t, got.Creators, 1)
	assert.True(t, got.Creators[0].Address.Equals(testAuthority))
	assert.True(t, got.Creators[0].Verified)
	assert.Equal(t, uint8(100), got.Creators[0].Share)

	require.NotNil(t, got.Collection)
	assert.True(t, got.Collection.Address.Equals(testMetaAddr))
	assert.True(t, got.Collection.Verified)

	require.NotNil(t, got.CollectionDetails)
	assert.Equal(t, domain.CollectionDetailsV1, got.CollectionDetails.Version)
	assert.Equal(t, uint64(10000), got.CollectionDetails.Size.Uint64())

	require.NotNil(t, got.Uses)
	assert.Equal(t, domain.UseMethodMultiple, got.Uses.UseMethod)
	assert.Equal(t, uint64(3), got.Uses.Remaining.Uint64())
	assert.Equal(t, uint64(5), got.Uses.Total.Uint64())

	assert.True(t, got.JSONLoaded)
	assert.JSONEq(t, string(m.JSON), string(got.JSON))
}

func TestMetadataStore_InsertMinimalRecord(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMetadataStore(pool)

	m := &domain.Metadata{
		Model:                  domain.MetadataModel,
		Address:                testMetaAddr,
		MintAddress:            testMint,
		UpdateAuthorityAddress: testAuthority,
		Name:                   "Bare",
		Symbol:                 "BARE",
		URI:                    "https://arweave.net/bare",
		Creators:               []domain.Creator{},
	}
	require.NoError(t, store.Insert(ctx, m))

	got, err := store.GetByMint(ctx, testMint.String())
	require.NoError(t, err)

	assert.Nil(t, got.EditionNonce)
	assert.Nil(t, got.TokenStandard)
	assert.Nil(t, got.Collection)
	assert.Nil(t, got.CollectionDetails)
	assert.Nil(t, got.Uses)
	assert.NotNil(t, got.Creators)
	assert.Empty(t, got.Creators)
	assert.False(t, got.JSONLoaded)
	assert.Nil(t, got.JSON)
}

func TestMetadataStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMetadataStore(pool)

	m := makeMetadata(testMint)
	require.NoError(t, store.Insert(ctx, m))

	err := store.Insert(ctx, m)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestMetadataStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMetadataStore(pool)

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	wrong := makeMetadata(testMint)
	wrong.Model = "nft"
	err = store.Insert(ctx, wrong)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestMetadataStore_GetByMintNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMetadataStore(pool)

	_, err := store.GetByMint(ctx, "11111111111111111111111111111111")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMetadataStore_ListRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMetadataStore(pool)

	// Distinct mints derived from fixed byte seeds.
	for i := 0; i < 3; i++ {
		var raw [32]byte
		raw[0] = byte(i + 1)
		mint, err := solana.PublicKeyFromBytes(raw[:])
		require.NoError(t, err)

		m := makeMetadata(mint)
		m.Name = fmt.Sprintf("Degen Ape #%d", i+1)
		require.NoError(t, store.Insert(ctx, m))
	}

	got, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	all, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPool_Healthy(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, pool.Healthy(context.Background()))

	// A closed pool is no longer healthy.
	pool.Close()
	assert.Error(t, pool.Healthy(context.Background()))
}
