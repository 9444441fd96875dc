package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeAccount subscribes to change notifications for one account.
	SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// AccountNotification represents an accountSubscribe message: the account
// changed at the given slot and should be re-fetched.
type AccountNotification struct {
	Pubkey   string
	Slot     int64
	Lamports uint64
	Owner    string
	Data     string // base64 encoded account data
}
