package session

import (
	"context"
	stderrors "errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisopts "github.com/kart-io/abhyasam/pkg/options/redis"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
	"github.com/kart-io/abhyasam/pkg/utils/json"
)

const redisKeyPrefix = "abhyasam:session:"

// RedisStore persists sessions in Redis so they survive restarts and can be
// shared across replicas. Per-key locking is process-local; it serializes
// read-modify-write cycles within one instance.
type RedisStore struct {
	client *goredis.Client
	ttl    time.Duration
	locks  keyLocks
}

// NewRedisStore creates a Redis-backed session store and verifies
// connectivity with a ping.
func NewRedisStore(ctx context.Context, opts *redisopts.Options, ttl time.Duration) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr(),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.ErrSessionStore.WithCause(err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Get loads the value stored under key into v.
// A corrupt entry is removed and reported as missing.
func (s *RedisStore) Get(ctx context.Context, key string, v any) error {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if stderrors.Is(err, goredis.Nil) {
			return errors.ErrSessionNotFound
		}
		return errors.ErrSessionStore.WithCause(err)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		_ = s.client.Del(ctx, redisKeyPrefix+key).Err()
		return errors.ErrSessionNotFound.WithCause(err)
	}
	return nil
}

// Put stores v under key with the store's TTL.
func (s *RedisStore) Put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.ErrSessionStore.WithCause(err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		return errors.ErrSessionStore.WithCause(err)
	}
	return nil
}

// Delete removes key. Missing keys are ignored; DEL is already a no-op there.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return errors.ErrSessionStore.WithCause(err)
	}
	return nil
}

// Update serializes a read-modify-write cycle on key within this process.
func (s *RedisStore) Update(ctx context.Context, key string, fn func() error) error {
	lock := s.locks.lock(key)
	lock.Lock()
	defer lock.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
