// Package ristretto backs the cache port with an in-process ristretto
// instance bounded by total value bytes. It serves as the local level of the
// research cache.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Counter sizing assumes entries around 1 KB (research payloads are small
// JSON) and keeps tenfold counters per expected entry.
const (
	assumedEntryBytes = 1024
	minCounters       = 10_000
)

// Cache adapts ristretto to the cache port. Writes are admitted
// asynchronously: a freshly Set key can miss until the internal buffers
// drain (see Wait).
type Cache struct {
	inner *ristretto.Cache[string, []byte]
}

// New creates a cache bounded to maxCostBytes of stored values.
func New(maxCostBytes int64) (*Cache, error) {
	counters := maxCostBytes / assumedEntryBytes * 10
	if counters < minCounters {
		counters = minCounters
	}
	inner, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get reports the cached value for key, if admitted and not yet evicted.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := c.inner.Get(key)
	if !ok {
		return nil, false, nil
	}
	return val, true, nil
}

// Set offers the value at a cost of its length in bytes. Admission may
// decline the entry; that is not an error, the entry is simply never
// served.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.inner.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete drops key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.inner.Del(key)
	return nil
}

// Wait blocks until buffered writes are applied. Only needed when a caller
// must read its own write, such as tests.
func (c *Cache) Wait() {
	c.inner.Wait()
}

// Close releases the cache's resources.
func (c *Cache) Close() {
	c.inner.Close()
}
