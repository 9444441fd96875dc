package stub

import (
	"context"
	"errors"

	"solana-nft-kit/internal/solana"
)

// ErrNotFound is returned when an account is not in the stub store.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Accounts  map[string]*solana.AccountInfo
	Balances  map[string]uint64
	Slot      int64
	Blockhash solana.LatestBlockhash
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts: make(map[string]*solana.AccountInfo),
		Balances: make(map[string]uint64),
	}
}

// GetAccountInfo retrieves account info from the stub store.
// Returns nil for unknown accounts, matching the real client.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	return c.Accounts[pubkey], nil
}

// GetBalance retrieves a balance from the stub store.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	return c.Balances[pubkey], nil
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	return c.Slot, nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.LatestBlockhash, error) {
	return &c.Blockhash, nil
}
