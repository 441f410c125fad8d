package cache

import (
	"context"
	"fmt"
	"log/slog"

	oceanpost "github.com/driftlabs/oceanpost"
	"github.com/driftlabs/oceanpost/store"
	"github.com/driftlabs/oceanpost/telemetry"
)

// Loader is the read-through path: it serves payloads from the cache and
// falls back to the content store on a miss, parsing and validating the
// fetched blob before it is cached. A blob that fails to fetch or parse is
// never cached; the error propagates to the caller.
type Loader struct {
	cache  *Cache
	store  store.Store
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger for cache misses and fetch failures.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a read-through loader over a cache and a content store.
func NewLoader(c *Cache, s store.Store, opts ...LoaderOption) *Loader {
	l := &Loader{
		cache:  c,
		store:  s,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the payload for a hash, from cache when possible.
func (l *Loader) Load(ctx context.Context, hash oceanpost.ContentHash) (oceanpost.Payload, error) {
	if payload, ok := l.cache.Get(hash); ok {
		telemetry.RecordCacheLookup(ctx, "hit")
		return payload, nil
	}
	telemetry.RecordCacheLookup(ctx, "miss")

	raw, err := l.store.Fetch(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("loading payload %s: %w", hash.ShortString(), err)
	}

	payload, err := oceanpost.ParsePayload(raw)
	if err != nil {
		l.logger.Warn("fetched payload failed validation",
			"hash", hash.ShortString(),
			"error", err,
		)
		return nil, fmt.Errorf("loading payload %s: %w", hash.ShortString(), err)
	}

	if err := l.cache.Put(hash, payload); err != nil {
		return nil, fmt.Errorf("caching payload %s: %w", hash.ShortString(), err)
	}

	stats := l.cache.Stats()
	telemetry.UpdateCacheStats(ctx, stats.Count, stats.ApproxBytes)

	return payload, nil
}

// Prime inserts an already validated payload, typically the snapshot the
// synchronizer just uploaded, so the next read avoids a store round trip.
func (l *Loader) Prime(hash oceanpost.ContentHash, payload oceanpost.Payload) {
	_ = l.cache.Put(hash, payload)
}

// Cache returns the underlying cache.
func (l *Loader) Cache() *Cache {
	return l.cache
}
