package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/zeebo/blake3"

	oceanpost "github.com/driftlabs/oceanpost"
)

// Memory is an in-process content-addressed store. Hashes are derived from
// blob content with BLAKE3, so identical bytes always map to the same hash
// and uploads of existing content are no-ops. Used by tests and the demo CLI.
type Memory struct {
	mu    sync.RWMutex
	blobs map[oceanpost.ContentHash][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[oceanpost.ContentHash][]byte)}
}

// Upload implements Store.
func (m *Memory) Upload(_ context.Context, data []byte) (oceanpost.ContentHash, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty blob", ErrUploadFailed)
	}

	sum := blake3.Sum256(data)
	hash := oceanpost.ContentHash("b3:" + hex.EncodeToString(sum[:]))

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[hash]; !ok {
		m.blobs[hash] = append([]byte(nil), data...)
	}
	return hash, nil
}

// Fetch implements Store.
func (m *Memory) Fetch(_ context.Context, hash oceanpost.ContentHash) ([]byte, error) {
	if !hash.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[hash]
	if !ok {
		return nil, fmt.Errorf("%w: no blob for hash %s", ErrFetchFailed, hash.ShortString())
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

var _ Store = (*Memory)(nil)
