// Package cache defines the port for result caching. Adapters back it
// with an in-process store, a shared JetStream bucket, or both tiered.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with per-entry TTLs. Get
// reports a miss with found=false and reserves the error return for
// store failures. Handlers treat the cache as optional: a nil Cache
// means every lookup misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
