// Package tracker maintains the volatile per-entity engagement state: the
// like and comment counters plus the entity's current content-hash pointer.
// This is the only mutable state in the core; it lives for the process
// lifetime and is never persisted.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	oceanpost "github.com/driftlabs/oceanpost"
)

// ErrNotLoaded is returned when an operation targets an entity that has not
// been seeded with Load. It indicates an ordering bug in the caller and is
// never retried automatically.
var ErrNotLoaded = errors.New("entity not loaded")

// State is the tracked state of one entity. Counters are mutated locally
// and synchronously; the hash pointer is rewritten only by the synchronizer
// after a confirmed ledger update.
type State struct {
	LikeCount    int64
	CommentCount int64
	ContentHash  oceanpost.ContentHash
}

// Counts is the read-only counter pair.
type Counts struct {
	Likes    int64
	Comments int64
}

// Tracker maps entity IDs to their engagement state. Entities are fully
// independent: mutating one never observes or alters another.
type Tracker struct {
	mu       sync.RWMutex
	entities map[uint64]*State
	logger   *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		entities: make(map[uint64]*State),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load seeds or wholesale-replaces the state for an entity. It is
// idempotent and used both for first-time seeding from a snapshot and for
// re-sync after external reconciliation. Other entities are unaffected.
func (t *Tracker) Load(entityID uint64, hash oceanpost.ContentHash, likeCount, commentCount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entities[entityID] = &State{
		LikeCount:    likeCount,
		CommentCount: commentCount,
		ContentHash:  hash,
	}
	t.logger.Debug("entity loaded",
		"entity_id", entityID,
		"hash", hash.ShortString(),
		"likes", likeCount,
		"comments", commentCount,
	)
}

// Require returns a copy of the entity's state, or ErrNotLoaded.
func (t *Tracker) Require(entityID uint64) (State, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.entities[entityID]
	if !ok {
		return State{}, fmt.Errorf("entity %d: %w", entityID, ErrNotLoaded)
	}
	return *st, nil
}

// IncrementLikes adds one like and returns the new count.
func (t *Tracker) IncrementLikes(entityID uint64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.entities[entityID]
	if !ok {
		return 0, fmt.Errorf("entity %d: %w", entityID, ErrNotLoaded)
	}
	st.LikeCount++
	return st.LikeCount, nil
}

// DecrementLikes removes one like, flooring at zero, and returns the new count.
func (t *Tracker) DecrementLikes(entityID uint64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.entities[entityID]
	if !ok {
		return 0, fmt.Errorf("entity %d: %w", entityID, ErrNotLoaded)
	}
	if st.LikeCount > 0 {
		st.LikeCount--
	}
	return st.LikeCount, nil
}

// IncrementComments adds one comment and returns the new count.
func (t *Tracker) IncrementComments(entityID uint64) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.entities[entityID]
	if !ok {
		return 0, fmt.Errorf("entity %d: %w", entityID, ErrNotLoaded)
	}
	st.CommentCount++
	return st.CommentCount, nil
}

// UpdateContentHash rewrites the entity's hash pointer. It is called
// exclusively by the synchronizer after a successful store write and
// confirmed ledger update, never by counter mutators.
func (t *Tracker) UpdateContentHash(entityID uint64, hash oceanpost.ContentHash) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.entities[entityID]
	if !ok {
		return fmt.Errorf("entity %d: %w", entityID, ErrNotLoaded)
	}
	st.ContentHash = hash
	return nil
}

// ReadCounts returns the entity's counters, or ok=false when the entity is
// not loaded. For callers that tolerate absence.
func (t *Tracker) ReadCounts(entityID uint64) (Counts, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.entities[entityID]
	if !ok {
		return Counts{}, false
	}
	return Counts{Likes: st.LikeCount, Comments: st.CommentCount}, true
}
