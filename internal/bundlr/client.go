// Package bundlr talks to a Bundlr storage node: pay-per-byte pricing,
// funded balances and uploads that settle onto Arweave.
package bundlr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"solana-nft-kit/internal/domain"
	"solana-nft-kit/internal/identity"
)

// Default configuration values.
const (
	DefaultTimeout  = 60 * time.Second
	DefaultCurrency = "solana"
)

// Tag is a name/value pair attached to an upload.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UploadResponse is the node's answer to an upload: an HTTP-style status and
// the transaction id of the stored item.
type UploadResponse struct {
	Status int
	ID     string
}

// NodeClient is the capability set this module needs from a storage node.
type NodeClient interface {
	// Price quotes the current cost of storing numBytes bytes.
	Price(ctx context.Context, numBytes int) (domain.Amount, error)

	// Balance returns the currently funded balance for the signer's address.
	Balance(ctx context.Context) (domain.Amount, error)

	// Fund deposits amount into the node-side balance.
	Fund(ctx context.Context, amount domain.Amount) error

	// Withdraw requests amount back from the node-side balance and returns
	// the node's status code.
	Withdraw(ctx context.Context, amount domain.Amount) (int, error)

	// Upload stores the payload with its tags.
	Upload(ctx context.Context, data []byte, tags []Tag) (UploadResponse, error)

	// CheckConnection verifies the configured node is reachable.
	CheckConnection(ctx context.Context) error

	// Ready performs the readiness handshake needed by delegated signers.
	Ready(ctx context.Context) error
}

// signFunc signs a message for node authentication, hiding whether the key
// is local or delegated.
type signFunc func(ctx context.Context, message []byte) ([]byte, error)

// HTTPNodeClient implements NodeClient against a Bundlr node's REST API.
type HTTPNodeClient struct {
	baseURL  string
	currency string
	address  string // signer address in the node's account ledger
	client   *http.Client
	sign     signFunc
}

// Compile-time interface check.
var _ NodeClient = (*HTTPNodeClient)(nil)

// NodeOption configures HTTPNodeClient.
type NodeOption func(*HTTPNodeClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) NodeOption {
	return func(c *HTTPNodeClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) NodeOption {
	return func(c *HTTPNodeClient) {
		c.client = client
	}
}

// WithCurrency overrides the payment currency (default "solana").
func WithCurrency(currency string) NodeOption {
	return func(c *HTTPNodeClient) {
		c.currency = currency
	}
}

// NewClientWithSigner constructs the direct-signing client variant for
// identities holding a raw private key.
func NewClientWithSigner(baseURL string, signer identity.DirectSigner, opts ...NodeOption) *HTTPNodeClient {
	c := newClient(baseURL, signer.PublicKey().String(), opts...)
	c.sign = func(_ context.Context, message []byte) ([]byte, error) {
		return signer.Sign(message)
	}
	return c
}

// NewClientWithDelegate constructs the delegated-signing client variant for
// wallet-style identities. Callers must run the Ready handshake before use.
func NewClientWithDelegate(baseURL string, delegate identity.DelegatedSigner, opts ...NodeOption) *HTTPNodeClient {
	c := newClient(baseURL, delegate.PublicKey().String(), opts...)
	c.sign = delegate.SignMessage
	return c
}

func newClient(baseURL, address string, opts ...NodeOption) *HTTPNodeClient {
	c := &HTTPNodeClient{
		baseURL:  baseURL,
		currency: DefaultCurrency,
		address:  address,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the node address this client talks to.
func (c *HTTPNodeClient) Address() string {
	return c.baseURL
}

// Price quotes the cost of storing numBytes bytes, in smallest units.
func (c *HTTPNodeClient) Price(ctx context.Context, numBytes int) (domain.Amount, error) {
	endpoint := fmt.Sprintf("%s/price/%s/%d", c.baseURL, c.currency, numBytes)

	body, _, err := c.get(ctx, endpoint)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("get price: %w", err)
	}

	d, err := decimal.NewFromString(string(bytes.TrimSpace(body)))
	if err != nil {
		return domain.Amount{}, fmt.Errorf("parse price %q: %w", string(body), err)
	}
	return domain.AmountFromDecimal(d), nil
}

// Balance returns the funded balance for the signer's address.
func (c *HTTPNodeClient) Balance(ctx context.Context) (domain.Amount, error) {
	endpoint := fmt.Sprintf("%s/account/balance/%s?address=%s",
		c.baseURL, c.currency, url.QueryEscape(c.address))

	body, _, err := c.get(ctx, endpoint)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("get balance: %w", err)
	}

	var resp struct {
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Amount{}, fmt.Errorf("unmarshal balance: %w", err)
	}

	d, err := decimal.NewFromString(resp.Balance)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("parse balance %q: %w", resp.Balance, err)
	}
	return domain.AmountFromDecimal(d), nil
}

// Fund deposits amount into the node-side balance for the signer's address.
func (c *HTTPNodeClient) Fund(ctx context.Context, amount domain.Amount) error {
	payload := fundRequest{
		Address: c.address,
		Amount:  amount.String(),
	}

	sig, err := c.sign(ctx, []byte(payload.Address+":"+payload.Amount))
	if err != nil {
		return fmt.Errorf("sign funding request: %w", err)
	}
	payload.Signature = base64.StdEncoding.EncodeToString(sig)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal funding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/account/balance/%s", c.baseURL, c.currency)
	respBody, status, err := c.post(ctx, endpoint, "application/json", body)
	if err != nil {
		return fmt.Errorf("post funding: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("funding rejected with status %d: %s", status, string(respBody))
	}
	return nil
}

type fundRequest struct {
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type withdrawRequest struct {
	Address   string `json:"address"`
	Currency  string `json:"currency"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

// Withdraw requests amount back from the node-side balance. The returned int
// is the node's status code; callers treat >= 300 as failure.
func (c *HTTPNodeClient) Withdraw(ctx context.Context, amount domain.Amount) (int, error) {
	payload := withdrawRequest{
		Address:  c.address,
		Currency: c.currency,
		Amount:   amount.String(),
	}

	sig, err := c.sign(ctx, []byte(payload.Address+":"+payload.Amount))
	if err != nil {
		return 0, fmt.Errorf("sign withdrawal: %w", err)
	}
	payload.Signature = base64.StdEncoding.EncodeToString(sig)

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal withdrawal: %w", err)
	}

	endpoint := c.baseURL + "/account/withdraw"
	_, status, err := c.post(ctx, endpoint, "application/json", body)
	if err != nil {
		return 0, fmt.Errorf("post withdrawal: %w", err)
	}
	return status, nil
}

// Upload stores the payload with its tags and returns the node's status and
// the stored item's transaction id.
func (c *HTTPNodeClient) Upload(ctx context.Context, data []byte, tags []Tag) (UploadResponse, error) {
	sig, err := c.sign(ctx, data)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("sign upload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/tx/%s", c.baseURL, c.currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return UploadResponse{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Owner", c.address)
	req.Header.Set("X-Signature", base64.StdEncoding.EncodeToString(sig))

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("marshal tags: %w", err)
	}
	req.Header.Set("X-Tags", string(tagsJSON))

	resp, err := c.client.Do(req)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("read upload response: %w", err)
	}

	result := UploadResponse{Status: resp.StatusCode}
	if resp.StatusCode < 300 {
		var parsed struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return UploadResponse{}, fmt.Errorf("unmarshal upload response: %w", err)
		}
		result.ID = parsed.ID
	}
	return result, nil
}

// CheckConnection verifies the node answers on its info endpoint.
func (c *HTTPNodeClient) CheckConnection(ctx context.Context) error {
	body, status, err := c.get(ctx, c.baseURL+"/info")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("node info returned status %d: %s", status, string(body))
	}
	return nil
}

// Ready performs the readiness handshake: a throwaway signature proves the
// delegate can actually sign before any funds move.
func (c *HTTPNodeClient) Ready(ctx context.Context) error {
	probe := []byte("bundlr ready check " + strconv.FormatInt(time.Now().UnixMilli(), 10))
	if _, err := c.sign(ctx, probe); err != nil {
		return fmt.Errorf("readiness signature: %w", err)
	}
	return nil
}

func (c *HTTPNodeClient) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return body, resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, resp.StatusCode, nil
}

func (c *HTTPNodeClient) post(ctx context.Context, endpoint, contentType string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}
