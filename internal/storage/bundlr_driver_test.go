package storage

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-nft-kit/internal/bundlr"
	"solana-nft-kit/internal/domain"
	"solana-nft-kit/internal/identity"
	"solana-nft-kit/internal/solana"
)

// stubNode implements bundlr.NodeClient in memory. Price is flat per byte,
// balances mutate the way the real node's ledger would.
type stubNode struct {
	mu sync.Mutex

	pricePerByte   int64
	balance        domain.Amount
	uploadStatus   int // response status for uploads, default 200
	withdrawStatus int // response status for withdrawals, default 200

	// failPayload makes the one upload carrying this exact payload fail
	// with failPayloadStatus while the rest of the batch succeeds.
	failPayload       []byte
	failPayloadStatus int

	connectionErr error
	readyErr      error

	uploads     []stubUpload
	fundCalls   []domain.Amount
	withdrawals []domain.Amount
}

type stubUpload struct {
	data []byte
	tags []bundlr.Tag
}

func newStubNode() *stubNode {
	return &stubNode{pricePerByte: 10}
}

func (s *stubNode) Price(_ context.Context, numBytes int) (domain.Amount, error) {
	return domain.NewAmount(int64(numBytes) * s.pricePerByte), nil
}

func (s *stubNode) Balance(_ context.Context) (domain.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

func (s *stubNode) Fund(_ context.Context, amount domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fundCalls = append(s.fundCalls, amount)
	s.balance = s.balance.Add(amount)
	return nil
}

func (s *stubNode) Withdraw(_ context.Context, amount domain.Amount) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.withdrawStatus >= 300 {
		return s.withdrawStatus, nil
	}
	s.withdrawals = append(s.withdrawals, amount)
	s.balance = s.balance.Subtract(amount)
	return http.StatusOK, nil
}

func (s *stubNode) Upload(_ context.Context, data []byte, tags []bundlr.Tag) (bundlr.UploadResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadStatus >= 300 {
		return bundlr.UploadResponse{Status: s.uploadStatus}, nil
	}
	if s.failPayload != nil && bytes.Equal(data, s.failPayload) {
		return bundlr.UploadResponse{Status: s.failPayloadStatus}, nil
	}
	s.uploads = append(s.uploads, stubUpload{data: data, tags: tags})
	return bundlr.UploadResponse{
		Status: http.StatusOK,
		ID:     stubTxID(data),
	}, nil
}

// stubTxID derives the transaction ID from the payload so tests can tie a
// returned URI back to the file that produced it.
func stubTxID(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("tx-%x", sum[:8])
}

func (s *stubNode) CheckConnection(_ context.Context) error { return s.connectionErr }
func (s *stubNode) Ready(_ context.Context) error           { return s.readyErr }

func testIdentity(t *testing.T) *identity.KeypairIdentity {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	id, err := identity.NewKeypairIdentity(priv)
	require.NoError(t, err)
	return id
}

// newTestDriver wires a driver to a stub node, counting factory invocations.
func newTestDriver(t *testing.T, node *stubNode) (*BundlrDriver, *atomic.Int32) {
	t.Helper()
	var factoryCalls atomic.Int32
	d := NewBundlrDriver(testIdentity(t), BundlrOptions{
		Address: "https://node.test",
		ClientFactory: func(identity.Identity) (bundlr.NodeClient, error) {
			factoryCalls.Add(1)
			return node, nil
		},
	})
	return d, &factoryCalls
}

func TestBundlrDriver_GetUploadPrice_Markup(t *testing.T) {
	node := newStubNode() // 10 units per byte
	d, _ := newTestDriver(t, node)
	ctx := context.Background()

	// 100 bytes -> quote 1000, marked up 1.5x -> 1500
	price, err := d.GetUploadPriceForBytes(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), price.Uint64())

	// Price of a file batch uses total content size.
	files := []domain.File{
		domain.NewFile("a", "", make([]byte, 60)),
		domain.NewFile("b", "", make([]byte, 40)),
	}
	price, err = d.GetUploadPrice(ctx, files...)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), price.Uint64())
}

func TestBundlrDriver_CustomPriceMultiplier(t *testing.T) {
	node := newStubNode()
	d := NewBundlrDriver(testIdentity(t), BundlrOptions{
		PriceMultiplier: decimal.NewFromInt(2),
		ClientFactory: func(identity.Identity) (bundlr.NodeClient, error) {
			return node, nil
		},
	})

	price, err := d.GetUploadPriceForBytes(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), price.Uint64())
}

func TestBundlrDriver_FundingNeeded(t *testing.T) {
	node := newStubNode()
	d, _ := newTestDriver(t, node)
	ctx := context.Background()
	files := []domain.File{domain.NewFile("a", "", make([]byte, 100))} // price 1500

	t.Run("zero balance needs the full price", func(t *testing.T) {
		needed, err := d.FundingNeeded(ctx, files, false)
		require.NoError(t, err)
		assert.Equal(t, uint64(1500), needed.Uint64())

		ok, err := d.NeedsFunding(ctx, files, false)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("partial balance needs the shortfall", func(t *testing.T) {
		node.balance = domain.NewAmount(600)
		needed, err := d.FundingNeeded(ctx, files, false)
		require.NoError(t, err)
		assert.Equal(t, uint64(900), needed.Uint64())
	})

	t.Run("surplus balance needs nothing", func(t *testing.T) {
		node.balance = domain.NewAmount(2000)
		needed, err := d.FundingNeeded(ctx, files, false)
		require.NoError(t, err)
		assert.True(t, needed.IsZero())

		ok, err := d.NeedsFunding(ctx, files, false)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("skip balance check returns the full price", func(t *testing.T) {
		node.balance = domain.NewAmount(2000)
		needed, err := d.FundingNeeded(ctx, files, true)
		require.NoError(t, err)
		assert.Equal(t, uint64(1500), needed.Uint64())
	})
}

func TestBundlrDriver_Fund(t *testing.T) {
	node := newStubNode()
	d, _ := newTestDriver(t, node)
	ctx := context.Background()
	files := []domain.File{domain.NewFile("a", "", make([]byte, 100))}

	require.NoError(t, d.Fund(ctx, files, false))
	require.Len(t, node.fundCalls, 1)
	assert.Equal(t, uint64(1500), node.fundCalls[0].Uint64())

	// Balance now covers the batch: funding again is a no-op.
	require.NoError(t, d.Fund(ctx, files, false))
	assert.Len(t, node.fundCalls, 1)
}

func TestBundlrDriver_UploadAll(t *testing.T) {
	node := newStubNode()
	d, _ := newTestDriver(t, node)
	d.DontWithdrawAfterUploading()

	files := []domain.File{
		domain.NewJSONFile("0.json", []byte(`{"n":0}`)),
		domain.NewJSONFile("1.json", []byte(`{"n":1}`)),
		domain.NewJSONFile("2.json", []byte(`{"n":2}`)),
	}

	uris, err := d.UploadAll(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, uris, 3)

	// uris[i] is the gateway URI of files[i], regardless of the order the
	// concurrent uploads completed in.
	for i, f := range files {
		assert.Equal(t, ArweaveGatewayURL+stubTxID(f.Content), uris[i], "uri %d", i)
	}
	assert.Len(t, node.uploads, 3)

	// Funding happened up front for the whole batch.
	require.NotEmpty(t, node.fundCalls)
}

func TestBundlrDriver_UploadAll_PartialFailure(t *testing.T) {
	node := newStubNode()
	node.failPayload = []byte(`{"n":1}`)
	node.failPayloadStatus = http.StatusPaymentRequired
	d, _ := newTestDriver(t, node)
	d.DontWithdrawAfterUploading()

	files := []domain.File{
		domain.NewJSONFile("0.json", []byte(`{"n":0}`)),
		domain.NewJSONFile("1.json", []byte(`{"n":1}`)),
	}

	// One rejected upload fails the whole batch: no URIs come back.
	uris, err := d.UploadAll(context.Background(), files)
	assert.Nil(t, uris)

	var uploadErr *UploadFailedError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, http.StatusPaymentRequired, uploadErr.StatusCode)
}

func TestBundlrDriver_UploadTagsContentType(t *testing.T) {
	node := newStubNode()
	d, _ := newTestDriver(t, node)
	d.DontWithdrawAfterUploading()

	_, err := d.Upload(context.Background(), domain.NewJSONFile("meta.json", []byte(`{}`)))
	require.NoError(t, err)

	require.Len(t, node.uploads, 1)
	require.Len(t, node.uploads[0].tags, 1)
	assert.Equal(t, "Content-Type", node.uploads[0].tags[0].Name)
	assert.Equal(t, "application/json", node.uploads[0].tags[0].Value)
}

func TestBundlrDriver_UploadFailedStatus(t *testing.T) {
	node := newStubNode()
	node.uploadStatus = http.StatusPaymentRequired
	d, _ := newTestDriver(t, node)
	d.DontWithdrawAfterUploading()

	_, err := d.Upload(context.Background(), domain.NewFile("x", "", []byte("data")))

	var uploadErr *UploadFailedError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, http.StatusPaymentRequired, uploadErr.StatusCode)
}

func TestBundlrDriver_WithdrawAll(t *testing.T) {
	ctx := context.Background()

	t.Run("balance above reserve withdraws the difference", func(t *testing.T) {
		node := newStubNode()
		node.balance = domain.NewAmount(10000)
		d, _ := newTestDriver(t, node)

		require.NoError(t, d.WithdrawAll(ctx))
		require.Len(t, node.withdrawals, 1)
		assert.Equal(t, uint64(5000), node.withdrawals[0].Uint64())
		assert.Equal(t, uint64(5000), node.balance.Uint64())
	})

	t.Run("balance at reserve is left alone", func(t *testing.T) {
		node := newStubNode()
		node.balance = domain.NewAmount(5000)
		d, _ := newTestDriver(t, node)

		require.NoError(t, d.WithdrawAll(ctx))
		assert.Empty(t, node.withdrawals)
	})

	t.Run("balance below reserve is left alone", func(t *testing.T) {
		node := newStubNode()
		node.balance = domain.NewAmount(1200)
		d, _ := newTestDriver(t, node)

		require.NoError(t, d.WithdrawAll(ctx))
		assert.Empty(t, node.withdrawals)
	})
}

func TestBundlrDriver_WithdrawFailedStatus(t *testing.T) {
	node := newStubNode()
	node.withdrawStatus = http.StatusForbidden
	d, _ := newTestDriver(t, node)

	err := d.Withdraw(context.Background(), domain.NewAmount(100))

	var withdrawErr *WithdrawFailedError
	require.ErrorAs(t, err, &withdrawErr)
	assert.Equal(t, http.StatusForbidden, withdrawErr.StatusCode)
}

func TestBundlrDriver_UploadAllWithdrawsLeftover(t *testing.T) {
	node := newStubNode()
	d, _ := newTestDriver(t, node)

	// Default behavior drains the balance down to the reserve afterwards.
	assert.True(t, d.ShouldWithdrawAfterUploading())

	// 600 bytes at 10/byte marked up 1.5x = 9000 funded.
	files := []domain.File{domain.NewFile("big", "", make([]byte, 600))}
	_, err := d.UploadAll(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, node.withdrawals, 1)
	assert.Equal(t, uint64(4000), node.withdrawals[0].Uint64())
	assert.Equal(t, uint64(5000), node.balance.Uint64())
}

func TestBundlrDriver_WithdrawFlagChaining(t *testing.T) {
	node := newStubNode()
	d, _ := newTestDriver(t, node)

	assert.True(t, d.ShouldWithdrawAfterUploading())
	assert.False(t, d.DontWithdrawAfterUploading().ShouldWithdrawAfterUploading())
	assert.True(t, d.WithdrawAfterUploading().ShouldWithdrawAfterUploading())

	// Chaining returns the same driver, not a copy.
	assert.Same(t, d, d.DontWithdrawAfterUploading())
}

func TestBundlrDriver_SingleFlightInit(t *testing.T) {
	node := newStubNode()
	d, factoryCalls := newTestDriver(t, node)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.GetBalance(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), factoryCalls.Load(), "concurrent first calls share one initialization")
}

func TestBundlrDriver_InitFailureIsTerminal(t *testing.T) {
	node := newStubNode()
	node.connectionErr = errors.New("connection refused")
	d, factoryCalls := newTestDriver(t, node)
	ctx := context.Background()

	_, err := d.GetBalance(ctx)
	var connErr *ConnectionFailedError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "https://node.test", connErr.Address)

	// The failure is memoized: later calls return it without reconnecting.
	node.connectionErr = nil
	_, err = d.GetBalance(ctx)
	assert.ErrorAs(t, err, &connErr)
	assert.Equal(t, int32(1), factoryCalls.Load())
}

func TestBundlrDriver_DelegatedReadyFailure(t *testing.T) {
	node := newStubNode()
	node.readyErr = errors.New("wallet rejected probe")

	signer := testIdentity(t)
	wallet := identity.NewWalletIdentity(signer.PublicKey(), func(_ context.Context, msg []byte) ([]byte, error) {
		return signer.Sign(msg)
	})

	d := NewBundlrDriver(wallet, BundlrOptions{
		ClientFactory: func(identity.Identity) (bundlr.NodeClient, error) {
			return node, nil
		},
	})

	_, err := d.GetBalance(context.Background())
	var initErr *InitializationFailedError
	require.ErrorAs(t, err, &initErr)
}

func TestBundlrDriver_DirectSignerSkipsReady(t *testing.T) {
	node := newStubNode()
	node.readyErr = errors.New("should not be called")
	d, _ := newTestDriver(t, node)

	// Keypair identities sign locally; no handshake needed.
	_, err := d.GetBalance(context.Background())
	assert.NoError(t, err)
}

func TestBundlrDriver_IdentityCannotSign(t *testing.T) {
	d := NewBundlrDriver(bareIdentity{}, BundlrOptions{})

	_, err := d.GetBalance(context.Background())
	assert.ErrorIs(t, err, ErrIdentityCannotSign)
}

// bareIdentity has an address but no signing capability.
type bareIdentity struct{}

func (bareIdentity) PublicKey() solana.PublicKey { return solana.PublicKey{} }
