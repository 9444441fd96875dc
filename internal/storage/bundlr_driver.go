package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"solana-nft-kit/internal/bundlr"
	"solana-nft-kit/internal/domain"
	"solana-nft-kit/internal/identity"
	"solana-nft-kit/internal/observability"
)

// ArweaveGatewayURL prefixes every returned URI.
const ArweaveGatewayURL = "https://arweave.net/"

// minimumWithdrawalReserve is left on the node balance to cover transaction
// fees; WithdrawAll never drains below it.
var minimumWithdrawalReserve = domain.NewAmount(5000)

// defaultPriceMultiplier pads quoted prices. Network pricing fluctuates and
// underpaying causes upload rejection.
var defaultPriceMultiplier = decimal.NewFromFloat(1.5)

// ErrIdentityCannotSign is returned when the configured identity implements
// neither signing capability.
var ErrIdentityCannotSign = errors.New("identity holds no signing capability")

// ClientFactory builds the node client for an identity. Overridable in tests.
type ClientFactory func(id identity.Identity) (bundlr.NodeClient, error)

// BundlrOptions configures a BundlrDriver.
type BundlrOptions struct {
	// Address is the storage node base URL.
	Address string
	// Currency is the payment currency (default "solana").
	Currency string
	// Timeout applies to node HTTP calls.
	Timeout time.Duration
	// PriceMultiplier pads quoted prices (default 1.5).
	PriceMultiplier decimal.Decimal
	// ClientFactory overrides node client construction.
	ClientFactory ClientFactory
	// Metrics is optional instrumentation.
	Metrics *observability.Metrics
}

// DefaultNodeAddress is the Bundlr mainnet node.
const DefaultNodeAddress = "https://node1.bundlr.network"

// BundlrDriver adapts a Bundlr node to the Driver interface, managing client
// lifecycle, balance funding and price markup.
//
// The node client is created lazily on first use and memoized for the
// lifetime of the driver: initialization runs at most once even under
// concurrent first calls. An initialization failure is terminal; a new
// driver instance is required to reconnect.
type BundlrDriver struct {
	opts    BundlrOptions
	id      identity.Identity
	factory ClientFactory

	initOnce sync.Once
	client   bundlr.NodeClient
	initErr  error

	mu            sync.Mutex
	withdrawAfter bool
}

// Compile-time interface check.
var _ Driver = (*BundlrDriver)(nil)

// NewBundlrDriver creates a driver for the given identity. The node is not
// contacted until the first operation needs it.
func NewBundlrDriver(id identity.Identity, opts BundlrOptions) *BundlrDriver {
	if opts.Address == "" {
		opts.Address = DefaultNodeAddress
	}
	if opts.PriceMultiplier.IsZero() {
		opts.PriceMultiplier = defaultPriceMultiplier
	}

	d := &BundlrDriver{
		opts:          opts,
		id:            id,
		factory:       opts.ClientFactory,
		withdrawAfter: true,
	}
	if d.factory == nil {
		d.factory = d.buildClient
	}
	return d
}

// buildClient constructs the HTTP node client variant matching the
// identity's signing capability.
func (d *BundlrDriver) buildClient(id identity.Identity) (bundlr.NodeClient, error) {
	var nodeOpts []bundlr.NodeOption
	if d.opts.Timeout > 0 {
		nodeOpts = append(nodeOpts, bundlr.WithTimeout(d.opts.Timeout))
	}
	if d.opts.Currency != "" {
		nodeOpts = append(nodeOpts, bundlr.WithCurrency(d.opts.Currency))
	}

	switch signer := id.(type) {
	case identity.DirectSigner:
		return bundlr.NewClientWithSigner(d.opts.Address, signer, nodeOpts...), nil
	case identity.DelegatedSigner:
		return bundlr.NewClientWithDelegate(d.opts.Address, signer, nodeOpts...), nil
	default:
		return nil, ErrIdentityCannotSign
	}
}

// clientHandle returns the memoized node client, initializing it on first
// call. Concurrent first calls share a single connection attempt.
func (d *BundlrDriver) clientHandle(ctx context.Context) (bundlr.NodeClient, error) {
	d.initOnce.Do(func() {
		d.client, d.initErr = d.initialize(ctx)
	})
	return d.client, d.initErr
}

func (d *BundlrDriver) initialize(ctx context.Context) (bundlr.NodeClient, error) {
	client, err := d.factory(d.id)
	if err != nil {
		return nil, err
	}

	if err := client.CheckConnection(ctx); err != nil {
		return nil, &ConnectionFailedError{Address: d.opts.Address, Err: err}
	}

	// Wallet-style identities need a readiness handshake before signing.
	if _, direct := d.id.(identity.DirectSigner); !direct {
		if err := client.Ready(ctx); err != nil {
			return nil, &InitializationFailedError{Err: err}
		}
	}

	return client, nil
}

// GetBalance returns the currently funded node-side balance.
func (d *BundlrDriver) GetBalance(ctx context.Context) (domain.Amount, error) {
	client, err := d.clientHandle(ctx)
	if err != nil {
		return domain.Amount{}, err
	}
	return client.Balance(ctx)
}

// GetUploadPrice quotes the marked-up price for storing the files.
func (d *BundlrDriver) GetUploadPrice(ctx context.Context, files ...domain.File) (domain.Amount, error) {
	total := 0
	for _, f := range files {
		total += f.Size()
	}
	return d.GetUploadPriceForBytes(ctx, total)
}

// GetUploadPriceForBytes quotes the marked-up price for a raw byte count.
func (d *BundlrDriver) GetUploadPriceForBytes(ctx context.Context, numBytes int) (domain.Amount, error) {
	client, err := d.clientHandle(ctx)
	if err != nil {
		return domain.Amount{}, err
	}

	price, err := client.Price(ctx, numBytes)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("quote price for %d bytes: %w", numBytes, err)
	}
	return price.MultiplyCeil(d.opts.PriceMultiplier), nil
}

// FundingNeeded computes how much must be deposited before the files can be
// uploaded. With skipBalanceCheck the marked-up price is returned outright,
// useful as a worst-case quote or when the balance is known to be zero;
// otherwise the current balance is subtracted, floored at zero.
func (d *BundlrDriver) FundingNeeded(ctx context.Context, files []domain.File, skipBalanceCheck bool) (domain.Amount, error) {
	total := 0
	for _, f := range files {
		total += f.Size()
	}
	return d.FundingNeededForBytes(ctx, total, skipBalanceCheck)
}

// FundingNeededForBytes is FundingNeeded for a raw byte count.
func (d *BundlrDriver) FundingNeededForBytes(ctx context.Context, numBytes int, skipBalanceCheck bool) (domain.Amount, error) {
	price, err := d.GetUploadPriceForBytes(ctx, numBytes)
	if err != nil {
		return domain.Amount{}, err
	}
	if skipBalanceCheck {
		return price, nil
	}

	balance, err := d.GetBalance(ctx)
	if err != nil {
		return domain.Amount{}, err
	}
	return price.Subtract(balance), nil
}

// NeedsFunding reports whether a deposit is required before uploading.
func (d *BundlrDriver) NeedsFunding(ctx context.Context, files []domain.File, skipBalanceCheck bool) (bool, error) {
	needed, err := d.FundingNeeded(ctx, files, skipBalanceCheck)
	if err != nil {
		return false, err
	}
	return !needed.IsZero(), nil
}

// Fund deposits whatever FundingNeeded reports; a zero shortfall is a no-op.
func (d *BundlrDriver) Fund(ctx context.Context, files []domain.File, skipBalanceCheck bool) error {
	needed, err := d.FundingNeeded(ctx, files, skipBalanceCheck)
	if err != nil {
		return err
	}
	if needed.IsZero() {
		return nil
	}

	client, err := d.clientHandle(ctx)
	if err != nil {
		return err
	}
	if err := client.Fund(ctx, needed); err != nil {
		return fmt.Errorf("fund storage balance with %s: %w", needed, err)
	}

	if d.opts.Metrics != nil {
		d.opts.Metrics.FundingsTotal.Inc()
		d.opts.Metrics.FundedUnits.Add(float64(needed.Uint64()))
	}
	return nil
}

// Upload stores a single file and returns its URI.
func (d *BundlrDriver) Upload(ctx context.Context, file domain.File) (string, error) {
	uris, err := d.UploadAll(ctx, []domain.File{file})
	if err != nil {
		return "", err
	}
	return uris[0], nil
}

// UploadAll funds the node balance for the whole batch, uploads every file
// concurrently, and optionally withdraws the leftover balance. The returned
// URIs correspond index-wise to the inputs. The batch is all-or-nothing: any
// failed upload fails the call and no URIs are returned.
func (d *BundlrDriver) UploadAll(ctx context.Context, files []domain.File) ([]string, error) {
	client, err := d.clientHandle(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.Fund(ctx, files, false); err != nil {
		return nil, err
	}

	start := time.Now()
	uris := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			uri, err := d.uploadFile(gctx, client, file)
			if err != nil {
				return err
			}
			uris[i] = uri
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if d.opts.Metrics != nil {
		d.opts.Metrics.UploadDuration.Observe(time.Since(start).Seconds())
	}

	if d.ShouldWithdrawAfterUploading() {
		if err := d.WithdrawAll(ctx); err != nil {
			return nil, err
		}
	}

	return uris, nil
}

func (d *BundlrDriver) uploadFile(ctx context.Context, client bundlr.NodeClient, file domain.File) (string, error) {
	tags := []bundlr.Tag{{Name: "Content-Type", Value: file.ContentType}}

	resp, err := client.Upload(ctx, file.Content, tags)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", file.FileName, err)
	}
	if resp.Status >= 300 {
		if d.opts.Metrics != nil {
			d.opts.Metrics.UploadsFailed.WithLabelValues(fmt.Sprint(resp.Status)).Inc()
		}
		return "", &UploadFailedError{StatusCode: resp.Status}
	}

	if d.opts.Metrics != nil {
		d.opts.Metrics.UploadsTotal.Inc()
		d.opts.Metrics.BytesUploaded.Add(float64(file.Size()))
	}
	return ArweaveGatewayURL + resp.ID, nil
}

// WithdrawAll withdraws the node-side balance minus the fee reserve. Does
// nothing when the balance does not exceed the reserve.
func (d *BundlrDriver) WithdrawAll(ctx context.Context) error {
	balance, err := d.GetBalance(ctx)
	if err != nil {
		return err
	}
	if !balance.GreaterThan(minimumWithdrawalReserve) {
		return nil
	}
	return d.Withdraw(ctx, balance.Subtract(minimumWithdrawalReserve))
}

// Withdraw withdraws exactly amount from the node-side balance.
func (d *BundlrDriver) Withdraw(ctx context.Context, amount domain.Amount) error {
	client, err := d.clientHandle(ctx)
	if err != nil {
		return err
	}

	status, err := client.Withdraw(ctx, amount)
	if err != nil {
		return fmt.Errorf("withdraw %s: %w", amount, err)
	}
	if status >= 300 {
		return &WithdrawFailedError{StatusCode: status}
	}

	if d.opts.Metrics != nil {
		d.opts.Metrics.WithdrawalsTotal.Inc()
	}
	return nil
}

// ShouldWithdrawAfterUploading reports whether UploadAll drains the leftover
// balance when it finishes.
func (d *BundlrDriver) ShouldWithdrawAfterUploading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.withdrawAfter
}

// WithdrawAfterUploading enables the post-upload withdrawal. Returns the
// driver for chaining.
func (d *BundlrDriver) WithdrawAfterUploading() *BundlrDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.withdrawAfter = true
	return d
}

// DontWithdrawAfterUploading disables the post-upload withdrawal. Returns
// the driver for chaining.
func (d *BundlrDriver) DontWithdrawAfterUploading() *BundlrDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.withdrawAfter = false
	return d
}
