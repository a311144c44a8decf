// Package discovery performs live queries against provider and platform
// endpoints with timeout, retry, rate limiting, and a TTL'd response cache.
package discovery

import (
	"context"
	"sync"
	"time"
)

// CacheState is the lifecycle state of a cached resource. The transitions
// are the contract that makes staleness advisories testable: Fresh until
// TTL expiry, Stale after it, Refreshing while a single writer fetches,
// FallbackActive when a refresh failed and the old snapshot is serving.
type CacheState int

const (
	// StateMiss means no cached value exists
	StateMiss CacheState = iota

	// StateFresh means the value is within its TTL
	StateFresh

	// StateStale means the TTL expired and no refresh has succeeded since
	StateStale

	// StateRefreshing means a refresh is in flight; readers keep using
	// the previous snapshot
	StateRefreshing

	// StateFallbackActive means the last refresh failed and the stale
	// snapshot is being served deliberately
	StateFallbackActive
)

// String returns the state name
func (s CacheState) String() string {
	switch s {
	case StateMiss:
		return "miss"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateRefreshing:
		return "refreshing"
	case StateFallbackActive:
		return "fallback_active"
	default:
		return "unknown"
	}
}

// Key identifies one cached response: (provider-or-platform, query)
type Key struct {
	Scope string
	Query string
}

type cacheEntry struct {
	value      interface{}
	hasValue   bool
	fetchedAt  time.Time
	fallback   bool // last refresh failed; value is a deliberate fallback
	refreshing bool
	done       chan struct{} // closed when the in-flight refresh settles
}

// Cache is the gateway response cache. Read-mostly: lookups touch a
// short critical section, refreshes run outside the lock and swap the
// entry atomically, so readers always see a complete snapshot.
type Cache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[Key]*cacheEntry
	clock   func() time.Time
}

// NewCache creates a cache with the given TTL
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[Key]*cacheEntry),
		clock:   time.Now,
	}
}

// Lookup returns the cached value and its lifecycle state without
// triggering a refresh.
func (c *Cache) Lookup(key Key) (interface{}, CacheState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, StateMiss
	}
	return e.value, c.stateLocked(e)
}

func (c *Cache) stateLocked(e *cacheEntry) CacheState {
	if e.refreshing {
		return StateRefreshing
	}
	if e.fallback {
		return StateFallbackActive
	}
	if c.clock().Sub(e.fetchedAt) > c.ttl {
		return StateStale
	}
	return StateFresh
}

// GetOrRefresh returns the cached value when fresh, otherwise runs the
// refresh function under a single-writer discipline. A failed refresh
// keeps the previous snapshot, marks the entry FallbackActive, and
// returns both the stale value and the refresh error so callers can
// attach a staleness advisory instead of failing. Callers that arrive
// while a cold entry is being fetched block until the refresh settles;
// callers that hold a previous snapshot are served it immediately.
func (c *Cache) GetOrRefresh(ctx context.Context, key Key, refresh func(context.Context) (interface{}, error)) (interface{}, CacheState, error) {
	for {
		c.mu.Lock()
		e, ok := c.entries[key]
		if ok {
			switch c.stateLocked(e) {
			case StateFresh:
				v := e.value
				c.mu.Unlock()
				return v, StateFresh, nil
			case StateRefreshing:
				if e.hasValue {
					// Another writer is fetching; serve the previous snapshot.
					v := e.value
					c.mu.Unlock()
					return v, StateRefreshing, nil
				}
				// Cold entry with a refresh in flight: there is no previous
				// snapshot to serve, so wait for the writer to settle and
				// re-read the entry.
				done := e.done
				c.mu.Unlock()
				select {
				case <-ctx.Done():
					return nil, StateMiss, ctx.Err()
				case <-done:
				}
				continue
			}
			e.refreshing = true
			e.done = make(chan struct{})
		} else {
			e = &cacheEntry{refreshing: true, done: make(chan struct{})}
			c.entries[key] = e
		}
		hadValue := e.hasValue
		old := e.value
		done := e.done
		c.mu.Unlock()

		value, err := refresh(ctx)

		c.mu.Lock()
		e.refreshing = false
		close(done)
		if err != nil {
			if !hadValue {
				delete(c.entries, key)
				c.mu.Unlock()
				return nil, StateMiss, err
			}
			e.fallback = true
			c.mu.Unlock()
			return old, StateFallbackActive, err
		}
		e.value = value
		e.hasValue = true
		e.fetchedAt = c.clock()
		e.fallback = false
		c.mu.Unlock()
		return value, StateFresh, nil
	}
}

// SetClock overrides the time source; used by tests to drive TTL expiry
func (c *Cache) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}
