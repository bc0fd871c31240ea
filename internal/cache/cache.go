// Package cache stores aggregated query results keyed by the query
// fingerprint. Entries carry an ETag for conditional-request comparison and
// an advisory TTL: expiry marks an entry stale, it never evicts it, so
// stale results stay available for fallback and the ETag stays comparable
// until a fresher aggregation replaces the entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/civiclens/billhub/internal/domain/query"
	"github.com/civiclens/billhub/internal/domain/types"
	"github.com/civiclens/billhub/internal/kv"
	"github.com/civiclens/billhub/pkg/logger"
	"github.com/civiclens/billhub/pkg/metrics"
)

// Default freshness and retention bounds. Retention only applies to the
// durable tier: it is the hard bound after which a stale entry stops being
// useful even as a fallback.
const (
	DefaultTTL       = 5 * time.Minute
	DefaultRetention = 24 * time.Hour
)

const persistPrefix = "cache:"

const etagLen = 16

// Entry is one cached aggregation result. Owned exclusively by the cache;
// replaced wholesale on every successful aggregation, never mutated.
type Entry struct {
	Fingerprint string            `json:"fingerprint"`
	Query       query.Query       `json:"query"`
	Result      types.QueryResult `json:"result"`
	ETag        string            `json:"etag"`
	StoredAt    time.Time         `json:"stored_at"`
	TTL         time.Duration     `json:"ttl"`
}

// Age reports how long ago the entry was stored.
func (e Entry) Age(now time.Time) time.Duration {
	if e.StoredAt.IsZero() {
		return 0
	}
	return now.Sub(e.StoredAt)
}

// Cache is the in-process response cache with an optional durable tier.
// Concurrent reads and writes are safe; writes are last-writer-wins per
// fingerprint.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	ttl       time.Duration
	retention time.Duration
	store     kv.Store
	now       func() time.Time
	log       logger.Logger
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   make(map[string]Entry),
		ttl:       DefaultTTL,
		retention: DefaultRetention,
		now:       time.Now,
		log:       logger.Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewEntry builds the entry for one aggregation result, stamping the
// current time and computing the result's ETag.
func (c *Cache) NewEntry(q query.Query, res types.QueryResult) Entry {
	return Entry{
		Fingerprint: q.Fingerprint(),
		Query:       q,
		Result:      res,
		ETag:        etag(res),
		StoredAt:    c.now(),
		TTL:         c.ttl,
	}
}

// Get returns the entry for fingerprint regardless of freshness. A miss in
// memory falls through to the durable tier, so entries written by an
// earlier process stay serveable after a restart.
func (c *Cache) Get(ctx context.Context, fingerprint string) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if ok {
		return entry, true
	}

	if c.store == nil {
		return Entry{}, false
	}
	raw, ok, err := c.store.Get(ctx, persistPrefix+fingerprint)
	if err != nil {
		c.log.Warn(ctx, "cache tier read failed", logger.String("fingerprint", fingerprint), logger.Error(err))
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.Warn(ctx, "cache tier entry corrupt", logger.String("fingerprint", fingerprint), logger.Error(err))
		return Entry{}, false
	}

	c.mu.Lock()
	// A concurrent Put may have raced the tier read; the racing writer is
	// fresher, keep it.
	if current, exists := c.entries[fingerprint]; exists {
		entry = current
	} else {
		c.entries[fingerprint] = entry
		metrics.UpdateCacheEntries(len(c.entries))
	}
	c.mu.Unlock()
	return entry, true
}

// Put stores entry under its fingerprint, replacing any previous entry and
// writing through to the durable tier best-effort.
func (c *Cache) Put(ctx context.Context, entry Entry) {
	if entry.StoredAt.IsZero() {
		entry.StoredAt = c.now()
	}
	if entry.TTL <= 0 {
		entry.TTL = c.ttl
	}

	c.mu.Lock()
	c.entries[entry.Fingerprint] = entry
	size := len(c.entries)
	c.mu.Unlock()
	metrics.UpdateCacheEntries(size)

	if c.store == nil {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, persistPrefix+entry.Fingerprint, raw, c.retention); err != nil {
		c.log.Warn(ctx, "cache tier write failed", logger.String("fingerprint", entry.Fingerprint), logger.Error(err))
	}
}

// IsFresh reports whether entry is inside its advisory TTL. A stale entry
// is still serveable; freshness only decides whether revalidation is due.
func (c *Cache) IsFresh(entry Entry) bool {
	return c.now().Before(entry.StoredAt.Add(entry.TTL))
}

// TTL is the configured freshness window, surfaced as the cache-control
// hint on responses.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Len reports the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries snapshots the in-memory entries ordered by fingerprint, for
// callers that walk the cached population (feed-triggered revalidation).
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}

// etag derives the content fingerprint from the serialized bill set.
func etag(res types.QueryResult) string {
	raw, err := json.Marshal(res.Bills)
	if err != nil {
		raw = nil
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:etagLen]
}
