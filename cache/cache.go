// Package cache provides the in-process content cache that fronts reads
// from the content-addressed store. Entries are keyed by content hash and
// expire after a fixed TTL; expired entries are evicted lazily on lookup.
package cache

import (
	"sync"
	"time"

	oceanpost "github.com/driftlabs/oceanpost"
)

// DefaultTTL is the default time-to-live for cached payloads.
const DefaultTTL = 5 * time.Minute

type entry struct {
	payload   oceanpost.Payload
	size      int64
	storedAt  time.Time
	expiresAt time.Time
}

// Stats describes the cache contents, for observability only.
type Stats struct {
	// Count is the number of live entries.
	Count int

	// ApproxBytes is the total serialized size of all cached payloads.
	ApproxBytes int64
}

// Cache maps content hashes to previously fetched, validated payloads.
// Hashes identify immutable blobs, so entries never need invalidation
// beyond expiry; a concurrent Put of the same key is last-writer-wins.
type Cache struct {
	mu      sync.Mutex
	entries map[oceanpost.ContentHash]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[oceanpost.ContentHash]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached payload for a hash if present and unexpired.
// An expired entry is evicted and reported as absent; the caller is
// expected to fetch from the store and Put the result.
func (c *Cache) Get(hash oceanpost.ContentHash) (oceanpost.Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[hash]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, hash)
		return nil, false
	}
	return e.payload, true
}

// Put stores a payload under its hash with a fresh TTL, overwriting any
// prior entry for the same hash. Payloads that fail validation are refused
// so a malformed record can never be served from cache.
func (c *Cache) Put(hash oceanpost.ContentHash, payload oceanpost.Payload) error {
	data, err := oceanpost.EncodePayload(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[hash] = entry{
		payload:   payload,
		size:      int64(len(data)),
		storedAt:  now,
		expiresAt: now.Add(c.ttl),
	}
	return nil
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[oceanpost.ContentHash]entry)
}

// Stats returns entry count and approximate byte size. Expired entries
// that have not yet been looked up are excluded.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var stats Stats
	for _, e := range c.entries {
		if !now.Before(e.expiresAt) {
			continue
		}
		stats.Count++
		stats.ApproxBytes += e.size
	}
	return stats
}
