package storage

import (
	"context"

	"solana-nft-kit/internal/domain"
)

// Driver uploads opaque file blobs to a pay-per-byte storage network and
// returns the gateway URIs serving them.
type Driver interface {
	// GetUploadPrice quotes the marked-up price for storing the files.
	GetUploadPrice(ctx context.Context, files ...domain.File) (domain.Amount, error)

	// Upload stores a single file and returns its URI.
	Upload(ctx context.Context, file domain.File) (string, error)

	// UploadAll stores all files concurrently. The returned URIs correspond
	// index-wise to the input files; the whole batch fails if any upload does.
	UploadAll(ctx context.Context, files []domain.File) ([]string, error)
}

// MetadataStore indexes mapped metadata records.
type MetadataStore interface {
	// Insert adds a mapped record. Returns ErrDuplicateKey if the mint is
	// already indexed.
	Insert(ctx context.Context, m *domain.Metadata) error

	// GetByMint retrieves the indexed record for a mint.
	// Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Metadata, error)

	// ListRecent retrieves the most recently indexed records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Metadata, error)
}

// ReceiptStore journals completed uploads.
type ReceiptStore interface {
	// InsertBulk appends receipts for a completed batch.
	InsertBulk(ctx context.Context, receipts []*domain.UploadReceipt) error

	// GetByTimeRange retrieves receipts uploaded within [start, end]
	// (inclusive, milliseconds), ordered by upload time ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.UploadReceipt, error)
}
