package solana

import (
	"context"
	"encoding/base64"
	"fmt"
)

// RPCClient defines the Solana RPC HTTP interface used by this module.
type RPCClient interface {
	// GetAccountInfo retrieves account info by public key.
	// Returns nil when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetLatestBlockhash retrieves the most recent blockhash and the last
	// block height it remains valid for.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)
}

// LatestBlockhash is a recent blockhash usable to anchor a transaction.
type LatestBlockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// DataBytes decodes the base64 account data.
func (a *AccountInfo) DataBytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return raw, nil
}
