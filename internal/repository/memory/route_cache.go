package memory

import (
	"context"
	"sync"
	"time"

	"fitmatch/internal/domain/entities"
	"fitmatch/internal/repository"
)

var (
	_ repository.DeliveryRepository = (*DeliveryRepository)(nil)
	_ repository.CourierRepository  = (*CourierRepository)(nil)
	_ repository.TrackingRepository = (*TrackingRepository)(nil)
	_ repository.RouteCache         = (*RouteCache)(nil)
	_ repository.LockManager        = (*LockManager)(nil)
)

type cacheEntry struct {
	route     entities.Route
	expiresAt time.Time
}

// RouteCache is a TTL cache of fetched routes. Expired entries are treated
// as misses and dropped by a background sweep, the same way LockManager
// sweeps expired locks.
type RouteCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	stop    chan struct{}
	once    sync.Once
}

func NewRouteCache() *RouteCache {
	c := &RouteCache{
		entries: make(map[string]*cacheEntry),
		stop:    make(chan struct{}),
	}
	go c.cleanupExpired()
	return c
}

func (c *RouteCache) Get(ctx context.Context, key string) (entities.Route, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || !time.Now().Before(entry.expiresAt) {
		return nil, repository.ErrCacheMiss
	}
	return append(entities.Route(nil), entry.route...), nil
}

func (c *RouteCache) Set(ctx context.Context, key string, route entities.Route, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		route:     append(entities.Route(nil), route...),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Len returns the number of entries, including expired ones not yet swept.
func (c *RouteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *RouteCache) cleanupExpired() {
	ticker := time.NewTicker(30 * time.Second)
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
		case <-c.stop:
			return
		}
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (c *RouteCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}
