package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLocked = "LOCK"
	idemResult = "RES:"
)

// luaReleaseLock deletes the key only while it still holds the lock marker,
// so a late release never wipes a stored result.
var luaReleaseLock = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// IdempotencyStore remembers the outcome of a submit for a client supplied
// key. The key is first taken as a short lock and then overwritten with the
// serialized session.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock reports false when another submit holds the key or already
// stored its result.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	const op = "redisrepo.IdempotencyStore.AcquireLock"

	ok, err := s.rdb.SetNX(ctx, key, idemLocked, lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}
	return ok, nil
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, payload []byte) error {
	const op = "redisrepo.IdempotencyStore.SaveResult"

	if err := s.rdb.Set(ctx, key, encodeResult(payload), s.ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

// GetResult returns the stored payload. ok is false while the key is only
// locked or absent.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "redisrepo.IdempotencyStore.GetResult"

	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s:%w", op, err)
	}

	payload, ok := decodeResult(v)
	return payload, ok, nil
}

// Release drops a lock left by a failed submit.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	const op = "redisrepo.IdempotencyStore.Release"

	if err := luaReleaseLock.Run(ctx, s.rdb, []string{key}, idemLocked).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func encodeResult(payload []byte) string {
	return idemResult + string(payload)
}

func decodeResult(v string) ([]byte, bool) {
	rest, ok := strings.CutPrefix(v, idemResult)
	if !ok {
		return nil, false
	}
	return []byte(rest), true
}
