// Package tiered layers a fast in-process cache over a shared remote one.
// Each replica keeps hot entries locally while the remote level makes a
// result computed by one replica visible to the rest.
package tiered

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tbellamy/maestro/internal/port/cache"
)

// Cache reads through the local level first, then the shared one,
// backfilling local on a shared hit. A level that errors on read counts as
// a miss, so one flaky backend never breaks lookups. Writes go to both
// levels and report every failure.
type Cache struct {
	local    cache.Cache
	shared   cache.Cache
	localTTL time.Duration
}

// New combines a local and a shared backend. localTTL bounds how long
// backfilled entries live locally, so a replica stops serving an entry not
// long after the shared level rotates it.
func New(local, shared cache.Cache, localTTL time.Duration) *Cache {
	return &Cache{local: local, shared: shared, localTTL: localTTL}
}

// Get returns the first hit across the two levels.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, ok := lookup(ctx, c.local, "local", key); ok {
		return val, true, nil
	}

	val, ok := lookup(ctx, c.shared, "shared", key)
	if !ok {
		return nil, false, nil
	}
	if err := c.local.Set(ctx, key, val, c.localTTL); err != nil {
		slog.Debug("cache backfill failed", "key", key, "error", err)
	}
	return val, true, nil
}

// Set writes both levels. A failure on one does not stop the other; the
// caller gets every failure joined.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.Join(
		c.local.Set(ctx, key, value, ttl),
		c.shared.Set(ctx, key, value, ttl),
	)
}

// Delete removes the key from both levels.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Join(
		c.local.Delete(ctx, key),
		c.shared.Delete(ctx, key),
	)
}

// lookup reads one level, treating an error as a miss.
func lookup(ctx context.Context, level cache.Cache, name, key string) ([]byte, bool) {
	val, ok, err := level.Get(ctx, key)
	if err != nil {
		slog.Warn("cache level read failed", "level", name, "key", key, "error", err)
		return nil, false
	}
	return val, ok
}
