package clickhouse

import (
	"context"
	"fmt"

	"solana-nft-kit/internal/domain"
	"solana-nft-kit/internal/storage"
)

// ReceiptStore implements storage.ReceiptStore using ClickHouse.
// Upload receipts are an append-only audit journal.
type ReceiptStore struct {
	conn *Conn
}

// NewReceiptStore creates a new ReceiptStore.
func NewReceiptStore(conn *Conn) *ReceiptStore {
	return &ReceiptStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ReceiptStore = (*ReceiptStore)(nil)

// InsertBulk appends receipts for a completed batch.
func (s *ReceiptStore) InsertBulk(ctx context.Context, receipts []*domain.UploadReceipt) error {
	if len(receipts) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO upload_receipts (
			id, uri, file_name, content_type, bytes, price, uploaded_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range receipts {
		err = batch.Append(
			r.ID,
			r.URI,
			r.FileName,
			r.ContentType,
			r.Bytes,
			r.Price.Uint64(),
			r.UploadedAt,
		)
		if err != nil {
			return fmt.Errorf("append receipt %s: %w", r.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves receipts uploaded within [start, end] (inclusive,
// milliseconds), ordered by upload time ASC.
func (s *ReceiptStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.UploadReceipt, error) {
	query := `
		SELECT id, uri, file_name, content_type, bytes, price, uploaded_at
		FROM upload_receipts
		WHERE uploaded_at >= ? AND uploaded_at <= ?
		ORDER BY uploaded_at ASC, id ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*domain.UploadReceipt
	for rows.Next() {
		var r domain.UploadReceipt
		var price uint64
		if err := rows.Scan(&r.ID, &r.URI, &r.FileName, &r.ContentType, &r.Bytes, &price, &r.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		r.Price = domain.AmountFromUint64(price)
		receipts = append(receipts, &r)
	}
	return receipts, rows.Err()
}
