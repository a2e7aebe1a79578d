// Package statuscache memoizes expensive external probe results.
//
// Probes (CLI invocations, login round trips) answer questions whose
// underlying truth changes slowly relative to UI refresh frequency, so a
// success is served from cache until its TTL lapses. Failures are never
// cached and never evict a prior success: the next call retries the
// probe immediately.
package statuscache

import (
	"context"
	"sync"
	"time"
)

// Probe returns a value or an error within a bounded time. The cache
// invokes it synchronously in the caller's goroutine.
type Probe func(ctx context.Context) (any, error)

type entry struct {
	value      any
	capturedAt time.Time
}

// Cache is a TTL-keyed memoization of probe results. Entries are
// independent per key; there is no cross-key locking during probes.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	// inflight serializes probes per key so a thundering herd of
	// stale readers spawns one subprocess, not many.
	inflight map[string]*sync.Mutex

	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]*entry),
		inflight: make(map[string]*sync.Mutex),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrProbe returns the cached value for key when it is younger than
// ttl, otherwise invokes probe. A successful probe replaces the entry;
// a failed probe leaves any prior entry untouched and returns the error.
func (c *Cache) GetOrProbe(ctx context.Context, key string, ttl time.Duration, probe Probe) (any, error) {
	keyMu := c.keyLock(key)
	keyMu.Lock()
	defer keyMu.Unlock()

	if v, ok := c.fresh(key, ttl); ok {
		return v, nil
	}

	v, err := probe(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = &entry{value: v, capturedAt: c.now()}
	c.mu.Unlock()
	return v, nil
}

// Invalidate drops the entry for key, forcing the next call to probe.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// CapturedAt reports when the entry for key was last refreshed.
func (c *Cache) CapturedAt(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.capturedAt, true
}

func (c *Cache) fresh(key string, ttl time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.capturedAt) >= ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.inflight[key]
	if !ok {
		m = &sync.Mutex{}
		c.inflight[key] = m
	}
	return m
}
