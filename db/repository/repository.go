// Package repository provides the ephemeral key-value and publish/subscribe
// primitives behind the idempotency gate and the session bus. The Redis
// implementation is the production path; a bbolt-backed KV covers
// single-node deployments and an in-memory implementation covers tests.
package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KV.Get when a key is absent or expired.
var ErrNotFound = errors.New("key not found")

// KV is a minimal key-value store with TTLs and an atomic
// set-if-not-exists primitive. All operations are lock-free on the
// store side; SetNX is the only compare-and-set the callers rely on.
type KV interface {
	// SetNX stores value under key only if the key is absent. Returns
	// true when the write happened, false when the key already existed.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key unconditionally.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes key. Removing an absent key is not an error.
	Del(ctx context.Context, key string) error
}

// Bus is a best-effort, at-most-once publish/subscribe fan-out. No
// history is retained; subscribers receive only messages published while
// they are attached.
type Bus interface {
	// Publish sends payload to every current subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe returns a channel of raw payloads for the given channel.
	// The returned channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
