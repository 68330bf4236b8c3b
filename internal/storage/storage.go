package storage

import (
	"context"
	"errors"
	"fmt"
)

// StateStorage is a string-valued key-value store for serialized snapshots.
type StateStorage interface {
	// GetItem returns the record stored under key. ok is false when no
	// record exists.
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)

	// SetItem replaces the record stored under key.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes the record stored under key.
	RemoveItem(ctx context.Context, key string) error
}

var (
	// ErrNotImplemented is returned by backends that cannot perform an operation.
	ErrNotImplemented = errors.New("not implemented")

	// ErrMalformedBody indicates a record that is not valid JSON.
	ErrMalformedBody = errors.New("malformed record body")

	// ErrUnknownBackend indicates an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// AdapterError describes a failed storage operation.
type AdapterError struct {
	// Op is the operation: "get", "set" or "remove".
	Op string

	// Key is the record key.
	Key string

	// StatusCode is the HTTP status, when the failure came from a response.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("storage %s %q: status %d: %v", e.Op, e.Key, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsAdapterError reports whether err is (or wraps) an *AdapterError.
func IsAdapterError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}
