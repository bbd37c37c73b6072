package settings

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Values is the site configuration document.
type Values map[string]interface{}

// Loader reads the current settings from the store.
type Loader func(ctx context.Context) (Values, error)

// Cache holds one settings document for at most ttl. Loads happen under the
// lock so concurrent misses hit the store once.
type Cache struct {
	mu     sync.Mutex
	load   Loader
	ttl    time.Duration
	now    func() time.Time
	value  Values
	expiry time.Time
}

func NewCache(ttl time.Duration, load Loader) *Cache {
	return &Cache{load: load, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get returns a copy of the cached settings, reloading when the entry has
// expired, was invalidated or forceRefresh is set.
func (c *Cache) Get(ctx context.Context, forceRefresh bool) (Values, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !forceRefresh && c.value != nil && c.now().Before(c.expiry) {
		return maps.Clone(c.value), nil
	}

	v, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = Values{}
	}
	c.value = v
	c.expiry = c.now().Add(c.ttl)
	return maps.Clone(v), nil
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.value = nil
	c.expiry = time.Time{}
	c.mu.Unlock()
}
