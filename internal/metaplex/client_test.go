package metaplex

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-nft-kit/internal/observability"
	"solana-nft-kit/internal/solana"
	"solana-nft-kit/internal/solana/stub"
)

// seedAccount stores an encoded metadata account at the mint's PDA.
func seedAccount(t *testing.T, rpc *stub.RPCClient, uri string) {
	t.Helper()

	e := &accountEncoder{}
	e.u8(4)
	e.pubkey(testUpdateAuthority)
	e.pubkey(testMint)
	e.borshString("MyNFT")
	e.borshString("NFT")
	e.borshString(uri)
	e.u16(500)
	e.u8(0) // creators None
	e.u8(1) // primary_sale_happened
	e.u8(1) // is_mutable

	pda, _, err := FindMetadataAddress(testMint)
	require.NoError(t, err)

	rpc.Accounts[pda.String()] = &solana.AccountInfo{
		Lamports: 5616720,
		Owner:    TokenMetadataProgramID.String(),
		Data:     base64.StdEncoding.EncodeToString(e.b),
	}
}

type fetcherFunc func(ctx context.Context, uri string) (json.RawMessage, error)

func (f fetcherFunc) FetchJSON(ctx context.Context, uri string) (json.RawMessage, error) {
	return f(ctx, uri)
}

func TestClient_GetAccount(t *testing.T) {
	rpc := stub.NewRPCClient()
	seedAccount(t, rpc, "https://arweave.net/abc123")

	client := NewClient(rpc, nil)

	acct, err := client.GetAccount(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, "MyNFT", acct.Data.Name)
	assert.True(t, acct.Mint.Equals(testMint))
}

func TestClient_GetAccount_NotFound(t *testing.T) {
	client := NewClient(stub.NewRPCClient(), nil)

	_, err := client.GetAccount(context.Background(), testMint)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestClient_GetMetadata_NoFetcher(t *testing.T) {
	rpc := stub.NewRPCClient()
	seedAccount(t, rpc, "https://arweave.net/abc123")

	client := NewClient(rpc, nil)

	m, err := client.GetMetadata(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, "MyNFT", m.Name)
	assert.False(t, m.JSONLoaded)
	assert.Nil(t, m.JSON)
}

func TestClient_GetMetadata_WithFetcher(t *testing.T) {
	rpc := stub.NewRPCClient()
	seedAccount(t, rpc, "https://arweave.net/abc123")

	doc := json.RawMessage(`{"name":"MyNFT"}`)
	var fetchedURI string
	fetcher := fetcherFunc(func(_ context.Context, uri string) (json.RawMessage, error) {
		fetchedURI = uri
		return doc, nil
	})

	client := NewClient(rpc, fetcher)

	m, err := client.GetMetadata(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, "https://arweave.net/abc123", fetchedURI)
	assert.True(t, m.JSONLoaded)
	assert.JSONEq(t, string(doc), string(m.JSON))
}

func TestClient_GetMetadata_FetchFails(t *testing.T) {
	rpc := stub.NewRPCClient()
	seedAccount(t, rpc, "https://arweave.net/gone")

	fetcher := fetcherFunc(func(_ context.Context, _ string) (json.RawMessage, error) {
		return nil, errors.New("404")
	})

	client := NewClient(rpc, fetcher)

	// A failed document fetch is not fatal: the record still maps, with
	// JSONLoaded marking the attempt.
	m, err := client.GetMetadata(context.Background(), testMint)
	require.NoError(t, err)
	assert.True(t, m.JSONLoaded)
	assert.Nil(t, m.JSON)
}

func TestClient_GetMetadata_Metrics(t *testing.T) {
	metrics := observability.NewMetrics("metaplex_client_test")

	rpc := stub.NewRPCClient()
	seedAccount(t, rpc, "https://arweave.net/gone")
	fetcher := fetcherFunc(func(_ context.Context, _ string) (json.RawMessage, error) {
		return nil, errors.New("404")
	})

	client := NewClient(rpc, fetcher).WithMetrics(metrics)

	_, err := client.GetMetadata(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MetadataFetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MetadataJSONFailures))

	// Missing account counts as a failed fetch.
	missing := NewClient(stub.NewRPCClient(), nil).WithMetrics(metrics)
	_, err = missing.GetMetadata(context.Background(), testMint)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MetadataFetches.WithLabelValues("error")))
}

func TestHTTPJSONFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"name":"ok"}`))
		case "/invalid":
			w.Write([]byte(`{not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	fetcher := NewHTTPJSONFetcher(0)
	ctx := context.Background()

	doc, err := fetcher.FetchJSON(ctx, server.URL+"/good")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"ok"}`, string(doc))

	_, err = fetcher.FetchJSON(ctx, server.URL+"/invalid")
	assert.Error(t, err)

	_, err = fetcher.FetchJSON(ctx, server.URL+"/missing")
	assert.Error(t, err)
}
