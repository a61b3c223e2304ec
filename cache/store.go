// Package cache provides the TTL result cache behind the analytics engine.
//
// The Store interface keeps the engine independent of the backing store, so
// the in-process map can be swapped for Redis without touching aggregation
// logic. Entries are opaque JSON payloads keyed by the full query
// signature; a benign race where two requests compute and store the same
// key is acceptable since both computed the same deterministic result.
package cache

import (
	"context"
	"time"
)

// Store is a TTL-bounded key/value cache
type Store interface {
	// Get unmarshals the cached payload for key into dest and reports
	// whether a fresh entry existed. A stale or missing entry is a miss,
	// not an error.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value under key with the given TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Sweep removes stale entries and returns how many were evicted.
	// Skipping sweeps never affects correctness, only memory use.
	Sweep(ctx context.Context) int
}
