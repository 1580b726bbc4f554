package session

import (
	"context"
	"sync"

	"github.com/kart-io/abhyasam/pkg/utils/errors"
	"github.com/kart-io/abhyasam/pkg/utils/json"
)

// MemoryStore keeps sessions in process memory. Values are stored as JSON
// bytes so readers never alias the writer's structs, matching the Redis
// implementation's semantics.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	locks keyLocks
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Get loads the value stored under key into v.
func (s *MemoryStore) Get(_ context.Context, key string, v any) error {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return errors.ErrSessionNotFound
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.ErrSessionStore.WithCause(err)
	}
	return nil
}

// Put stores v under key.
func (s *MemoryStore) Put(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.ErrSessionStore.WithCause(err)
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Update serializes a read-modify-write cycle on key.
func (s *MemoryStore) Update(ctx context.Context, key string, fn func() error) error {
	lock := s.locks.lock(key)
	lock.Lock()
	defer lock.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
