// Package lockstore provides a small key/value store with TTLs, used for
// distributed claim locks and cooldown markers. A Redis-backed store shares
// state across gateway instances; the in-memory store serves single-instance
// deployments and tests.
package lockstore

import (
	"context"
	"time"
)

// Store is a TTL key store. All keys expire; a zero or negative remaining
// TTL means the key is gone.
type Store interface {
	// SetIfAbsent writes the key only if it does not already exist and
	// returns whether the write happened.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Set writes the key unconditionally.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// TTL returns the remaining lifetime of the key, or 0 if it does not
	// exist or has expired.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
