// Package store provides access to the content-addressed blob store that
// holds immutable bottle and comment snapshots.
package store

import (
	"context"
	"errors"

	oceanpost "github.com/driftlabs/oceanpost"
)

var (
	// ErrUploadFailed is returned when the store rejects or fails an upload.
	ErrUploadFailed = errors.New("content upload failed")

	// ErrFetchFailed is returned when a blob cannot be retrieved.
	ErrFetchFailed = errors.New("content fetch failed")

	// ErrInvalidHash is returned when a hash could not have been issued by the store.
	ErrInvalidHash = errors.New("invalid content hash")
)

// Store is the contract the core depends on: store bytes and get a hash
// back, fetch bytes by hash. Writes never mutate existing blobs.
type Store interface {
	// Upload stores a blob and returns its content hash.
	Upload(ctx context.Context, data []byte) (oceanpost.ContentHash, error)

	// Fetch retrieves a blob by its content hash.
	Fetch(ctx context.Context, hash oceanpost.ContentHash) ([]byte, error)
}
