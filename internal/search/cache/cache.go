package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alex-user-go/bizfinder/internal/search/types"
)

// Cache provides in-memory caching of search results with TTL and
// request collapsing (singleflight): concurrent searches for the same
// criteria share one provider round trip.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	ttl      time.Duration
	inflight map[string]*inflightSearch
	done     chan struct{}
}

type cacheEntry struct {
	result    *types.Result
	expiresAt time.Time
}

type inflightSearch struct {
	done   chan struct{}
	result *types.Result
	err    error
}

// NewCache creates a new Cache with the specified TTL.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		entries:  make(map[string]*cacheEntry),
		ttl:      ttl,
		inflight: make(map[string]*inflightSearch),
		done:     make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Close stops the background cleanup goroutine.
func (c *Cache) Close() {
	close(c.done)
}

// Key generates a cache key from the resolved provider name and the
// search criteria.
func (c *Cache) Key(provider, location, category string, radiusKM int, minRating float64) string {
	return fmt.Sprintf("%s:%s:%s:%d:%.1f", provider, location, category, radiusKM, minRating)
}

// GetOrFetch retrieves from cache or executes the fetch function,
// collapsing concurrent fetches for the same key. The boolean reports
// whether the result was a cache hit.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch func() (*types.Result, error)) (*types.Result, bool, error) {
	c.mu.Lock()

	if entry, ok := c.entries[key]; ok && time.Now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.result, true, nil
	}

	if flight, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-flight.done:
			return flight.result, false, flight.err
		case <-ctx.Done():
			return nil, false, context.Cause(ctx)
		}
	}

	flight := &inflightSearch{done: make(chan struct{})}
	c.inflight[key] = flight
	c.mu.Unlock()

	// Fetch outside the lock; searches can take a long time.
	result, err := fetch()

	c.mu.Lock()
	flight.result = result
	flight.err = err
	if err == nil && result != nil {
		c.entries[key] = &cacheEntry{
			result:    result,
			expiresAt: time.Now().Add(c.ttl),
		}
	}
	delete(c.inflight, key)
	c.mu.Unlock()

	close(flight.done)

	return result, false, err
}

// cleanup periodically removes expired entries.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}
