package idempotency

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	Header = "Idempotency-Key"

	pendingMarker = "pending"
	maxKeyLength  = 128

	DefaultLease = 30 * time.Second
)

var (
	ErrInProgress = errors.New("idempotency: request with this key is in progress")
	ErrInvalidKey = errors.New("idempotency: invalid key")
)

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// RedisStore remembers the outcome of a keyed request for ttl.
// A key is first reserved with a pending marker that lives for lease, then
// either completed with the result or released so the client may retry.
// A reservation that is never completed frees itself once the lease runs out.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	lease  time.Duration
	prefix string
}

// NewRedisStore uses DefaultLease when lease is not positive.
func NewRedisStore(client *redis.Client, prefix string, ttl, lease time.Duration) *RedisStore {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &RedisStore{client: client, ttl: ttl, lease: lease, prefix: prefix}
}

func (s *RedisStore) redisKey(scope, key string) string {
	return s.prefix + ":" + scope + ":" + key
}

// Begin returns ("", nil) when the caller owns the key and must run the request.
// It returns the stored result when the request already completed.
func (s *RedisStore) Begin(ctx context.Context, scope, key string) (string, error) {
	if key == "" || len(key) > maxKeyLength {
		return "", ErrInvalidKey
	}
	rk := s.redisKey(scope, key)

	ok, err := s.client.SetNX(ctx, rk, pendingMarker, s.lease).Result()
	if err != nil {
		return "", fmt.Errorf("idempotency: reserve: %w", err)
	}
	if ok {
		return "", nil
	}

	val, err := s.client.Get(ctx, rk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Begin(ctx, scope, key)
	}
	if err != nil {
		return "", fmt.Errorf("idempotency: read: %w", err)
	}
	if val == pendingMarker {
		return "", ErrInProgress
	}
	return val, nil
}

func (s *RedisStore) Complete(ctx context.Context, scope, key, result string) error {
	if err := s.client.Set(ctx, s.redisKey(scope, key), result, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: complete: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, s.redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("idempotency: release: %w", err)
	}
	return nil
}
