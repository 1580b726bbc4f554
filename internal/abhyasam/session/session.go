// Package session provides keyed storage for conversational state: chat
// histories and quiz progress. Access to a single key is serialized so
// concurrent requests for the same session never interleave read-modify-write
// cycles; distinct keys proceed in parallel.
package session

import (
	"context"
	"hash/fnv"
	"sync"
)

// Store persists session values by key. Values are JSON-serializable structs
// owned by the caller.
type Store interface {
	// Get loads the value stored under key into v.
	// A missing key returns ErrSessionNotFound.
	Get(ctx context.Context, key string, v any) error

	// Put stores v under key, replacing any previous value.
	Put(ctx context.Context, key string, v any) error

	// Delete removes key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// Update runs fn while holding the lock for key, serializing all
	// read-modify-write cycles on that key.
	Update(ctx context.Context, key string, fn func() error) error

	// Close releases underlying resources.
	Close() error
}

const lockStripes = 64

// keyLocks serializes access per key using a fixed set of striped mutexes.
// Two keys may share a stripe; that only costs contention, never correctness.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *keyLocks) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.stripes[h.Sum32()%lockStripes]
}
