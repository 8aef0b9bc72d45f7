// Package cache stores encoded result-set responses for queries that carry a
// ttl hint, keyed by datasource and physical SQL.
package cache

import (
	"time"

	"github.com/maypok86/otter"
)

// Cache wraps an otter cache with per-entry TTLs.
type Cache struct {
	store otter.CacheWithVariableTTL[string, []byte]
}

// New creates a cache bounded to maxSize entries.
func New(maxSize int) (*Cache, error) {
	store, err := otter.MustBuilder[string, []byte](maxSize).
		WithVariableTTL().
		Build()
	if err != nil {
		return nil, err
	}
	return &Cache{store: store}, nil
}

// Key builds the cache key for a statement on a datasource. The physical SQL
// goes in as-is: two logical queries hitting different shards produce
// different keys.
func Key(datasource, sql string) string {
	return datasource + "\x00" + sql
}

// Get returns a cached response.
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.store.Get(key)
}

// Set stores a response for ttl.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

// Delete drops one entry.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Close releases the cache's resources.
func (c *Cache) Close() {
	c.store.Close()
}
