package storage

import (
	"errors"
	"fmt"
)

// Store errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// UploadFailedError reports a single file upload rejected by the node.
type UploadFailedError struct {
	StatusCode int
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("asset upload failed with status %d", e.StatusCode)
}

// WithdrawFailedError reports a withdrawal rejected by the node.
type WithdrawFailedError struct {
	StatusCode int
}

func (e *WithdrawFailedError) Error() string {
	return fmt.Sprintf("withdrawal failed with status %d", e.StatusCode)
}

// ConnectionFailedError reports an unreachable storage node during driver
// initialization. Terminal for the driver instance.
type ConnectionFailedError struct {
	Address string
	Err     error
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("failed to connect to storage node %s: %v", e.Address, e.Err)
}

func (e *ConnectionFailedError) Unwrap() error {
	return e.Err
}

// InitializationFailedError reports a failed readiness handshake during
// driver initialization (delegated-signing identities only). Terminal for
// the driver instance.
type InitializationFailedError struct {
	Err error
}

func (e *InitializationFailedError) Error() string {
	return fmt.Sprintf("storage client initialization failed: %v", e.Err)
}

func (e *InitializationFailedError) Unwrap() error {
	return e.Err
}
