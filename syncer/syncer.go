// Package syncer reconciles the three representations of an entity's
// engagement state: the local counters, the latest immutable snapshot in
// the content store, and the ledger's content-hash pointer.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	oceanpost "github.com/driftlabs/oceanpost"
	"github.com/driftlabs/oceanpost/cache"
	"github.com/driftlabs/oceanpost/ledger"
	"github.com/driftlabs/oceanpost/store"
	"github.com/driftlabs/oceanpost/telemetry"
	"github.com/driftlabs/oceanpost/tracker"
)

// Syncer writes count snapshots to the content store and advances the
// ledger's pointer. It never mutates counters and never retries on its
// own; a failed sync leaves the tracker's pointer at its last-known-good
// hash so the caller can simply call SyncCounts again.
type Syncer struct {
	tracker *tracker.Tracker
	store   store.Store
	ledger  ledger.Ledger
	loader  *cache.Loader
	logger  *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger for sync progress and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// New creates a Syncer over the tracker, the content store, the ledger,
// and the read-through loader used to resolve the prior snapshot.
func New(t *tracker.Tracker, st store.Store, l ledger.Ledger, loader *cache.Loader, opts ...Option) *Syncer {
	s := &Syncer{
		tracker: t,
		store:   st,
		ledger:  l,
		loader:  loader,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncCounts publishes the entity's current counters as a new immutable
// snapshot and moves the ledger's pointer to it, in strict order:
//
//  1. read counters and the current hash pointer from the tracker
//  2. upload a new snapshot carrying the current counters
//  3. point the ledger at the new hash
//  4. advance the tracker's pointer
//
// The ledger update is never attempted before the upload succeeds, and the
// tracker's pointer never advances past an unconfirmed ledger update. A
// snapshot uploaded before a failed ledger update is orphaned but harmless;
// the store is append-only and the next sync produces a fresh snapshot from
// the last-known-good hash.
func (s *Syncer) SyncCounts(ctx context.Context, entityID uint64) (oceanpost.ContentHash, error) {
	start := time.Now()
	hash, err := s.syncCounts(ctx, entityID)
	telemetry.RecordSync(ctx, outcomeFromError(err), time.Since(start))
	return hash, err
}

func (s *Syncer) syncCounts(ctx context.Context, entityID uint64) (oceanpost.ContentHash, error) {
	st, err := s.tracker.Require(entityID)
	if err != nil {
		return "", fmt.Errorf("syncing counts: %w", err)
	}

	prior, err := s.loader.Load(ctx, st.ContentHash)
	if err != nil {
		return "", fmt.Errorf("syncing counts for entity %d: %w", entityID, err)
	}

	bottle, ok := prior.(*oceanpost.BottlePayload)
	if !ok {
		return "", fmt.Errorf("syncing counts for entity %d: snapshot %s is a %s, not a bottle",
			entityID, st.ContentHash.ShortString(), prior.PayloadKind())
	}

	next := *bottle
	next.LikeCount = st.LikeCount
	next.CommentCount = st.CommentCount

	data, err := oceanpost.EncodePayload(&next)
	if err != nil {
		return "", fmt.Errorf("syncing counts for entity %d: %w", entityID, err)
	}

	newHash, err := s.store.Upload(ctx, data)
	if err != nil {
		return "", fmt.Errorf("syncing counts for entity %d: uploading snapshot: %w", entityID, err)
	}

	if err := s.ledger.UpdateContentPointer(ctx, entityID, newHash); err != nil {
		// The new snapshot is orphaned; the tracker still points at the
		// last hash the ledger confirmed.
		return "", fmt.Errorf("syncing counts for entity %d: updating ledger pointer to %s: %w",
			entityID, newHash.ShortString(), err)
	}

	if err := s.tracker.UpdateContentHash(entityID, newHash); err != nil {
		return "", fmt.Errorf("syncing counts for entity %d: %w", entityID, err)
	}

	s.loader.Prime(newHash, &next)

	s.logger.Debug("counts synchronized",
		"entity_id", entityID,
		"hash", newHash.ShortString(),
		"previous_hash", st.ContentHash.ShortString(),
		"likes", next.LikeCount,
		"comments", next.CommentCount,
	)
	return newHash, nil
}

func outcomeFromError(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
