package metaplex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"solana-nft-kit/internal/domain"
	"solana-nft-kit/internal/observability"
	"solana-nft-kit/internal/solana"
)

// ErrAccountNotFound is returned when the metadata account does not exist.
var ErrAccountNotFound = errors.New("metadata account not found")

// JSONFetcher retrieves the off-chain JSON document behind a metadata URI.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, uri string) (json.RawMessage, error)
}

// Client fetches, decodes and maps metadata accounts.
type Client struct {
	rpc     solana.RPCClient
	fetcher JSONFetcher // nil disables off-chain enrichment
	metrics *observability.Metrics
}

// NewClient creates a metadata client. fetcher may be nil, in which case
// returned records carry JSONLoaded=false.
func NewClient(rpc solana.RPCClient, fetcher JSONFetcher) *Client {
	return &Client{rpc: rpc, fetcher: fetcher}
}

// WithMetrics enables fetch instrumentation. Returns the client for chaining.
func (c *Client) WithMetrics(m *observability.Metrics) *Client {
	c.metrics = m
	return c
}

// GetAccount fetches and decodes the metadata account for a mint.
func (c *Client) GetAccount(ctx context.Context, mint solana.PublicKey) (*Account, error) {
	pda, _, err := FindMetadataAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("derive metadata address for %s: %w", mint, err)
	}

	info, err := c.rpc.GetAccountInfo(ctx, pda.String())
	if err != nil {
		return nil, fmt.Errorf("get metadata account %s: %w", pda, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: mint %s", ErrAccountNotFound, mint)
	}

	raw, err := info.DataBytes()
	if err != nil {
		return nil, err
	}

	acct, err := DecodeAccount(raw)
	if err != nil {
		return nil, fmt.Errorf("decode metadata account %s: %w", pda, err)
	}
	return acct, nil
}

// GetMetadata fetches, decodes and maps the metadata for a mint. When a JSON
// fetcher is configured the off-chain document is loaded too; a failed fetch
// still yields a record with JSONLoaded=true and a nil document.
func (c *Client) GetMetadata(ctx context.Context, mint solana.PublicKey) (domain.Metadata, error) {
	acct, err := c.GetAccount(ctx, mint)
	if err != nil {
		if c.metrics != nil {
			c.metrics.MetadataFetches.WithLabelValues("error").Inc()
		}
		return domain.Metadata{}, err
	}
	if c.metrics != nil {
		c.metrics.MetadataFetches.WithLabelValues("ok").Inc()
	}

	if c.fetcher == nil {
		return ToMetadata(acct), nil
	}

	uri := trimPadding(acct.Data.URI)
	doc, err := c.fetcher.FetchJSON(ctx, uri)
	if err != nil {
		// Fetch attempted but document absent or invalid.
		if c.metrics != nil {
			c.metrics.MetadataJSONFailures.Inc()
		}
		return ToMetadataWithJSON(acct, nil), nil
	}
	return ToMetadataWithJSON(acct, doc), nil
}

// HTTPJSONFetcher loads JSON documents over plain HTTP.
type HTTPJSONFetcher struct {
	client *http.Client
}

// Compile-time interface check.
var _ JSONFetcher = (*HTTPJSONFetcher)(nil)

// NewHTTPJSONFetcher creates a fetcher with the given timeout
// (zero means no timeout).
func NewHTTPJSONFetcher(timeout time.Duration) *HTTPJSONFetcher {
	return &HTTPJSONFetcher{client: &http.Client{Timeout: timeout}}
}

// FetchJSON downloads and validates the document at uri.
func (f *HTTPJSONFetcher) FetchJSON(ctx context.Context, uri string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch json: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch json: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read json body: %w", err)
	}
	if !json.Valid(body) {
		return nil, errors.New("response is not valid json")
	}
	return json.RawMessage(body), nil
}
