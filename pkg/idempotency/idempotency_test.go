package idempotency

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "orders", time.Hour, time.Minute), mr
}

func TestKey_TrimsHeader(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/orders/create", nil)
	r.Header.Set(Header, "  abc  ")
	assert.Equal(t, "abc", Key(r))
}

func TestBegin_FirstCallOwnsKey(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	res, err := store.Begin(ctx, "user-1", "k1")
	require.NoError(t, err)
	assert.Empty(t, res)

	val, err := mr.Get("orders:user-1:k1")
	require.NoError(t, err)
	assert.Equal(t, pendingMarker, val)
	assert.Equal(t, time.Minute, mr.TTL("orders:user-1:k1"))
}

func TestBegin_AbandonedReservationExpiresAfterLease(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	_, err := store.Begin(ctx, "user-1", "k1")
	require.NoError(t, err)

	_, err = store.Begin(ctx, "user-1", "k1")
	require.ErrorIs(t, err, ErrInProgress)

	mr.FastForward(time.Minute)

	res, err := store.Begin(ctx, "user-1", "k1")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestComplete_KeepsResultForFullTTL(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	_, err := store.Begin(ctx, "user-1", "k1")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "user-1", "k1", "order-42"))
	assert.Equal(t, time.Hour, mr.TTL("orders:user-1:k1"))

	mr.FastForward(2 * time.Minute)

	res, err := store.Begin(ctx, "user-1", "k1")
	require.NoError(t, err)
	assert.Equal(t, "order-42", res)
}

func TestNewRedisStore_DefaultLease(t *testing.T) {
	t.Parallel()

	s := NewRedisStore(nil, "orders", time.Hour, 0)
	assert.Equal(t, DefaultLease, s.lease)
}

func TestBegin_ConcurrentDuplicateIsInProgress(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Begin(ctx, "user-1", "k1")
	require.NoError(t, err)

	_, err = store.Begin(ctx, "user-1", "k1")
	assert.True(t, errors.Is(err, ErrInProgress))

	// other users do not collide
	res, err := store.Begin(ctx, "user-2", "k1")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestComplete_ReplayReturnsResult(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Begin(ctx, "user-1", "k1")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "user-1", "k1", "order-42"))

	res, err := store.Begin(ctx, "user-1", "k1")
	require.NoError(t, err)
	assert.Equal(t, "order-42", res)
}

func TestRelease_AllowsRetry(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	_, err := store.Begin(ctx, "user-1", "k1")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "user-1", "k1"))
	assert.False(t, mr.Exists("orders:user-1:k1"))

	res, err := store.Begin(ctx, "user-1", "k1")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestBegin_InvalidKey(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Begin(context.Background(), "u", "")
	assert.True(t, errors.Is(err, ErrInvalidKey))

	_, err = store.Begin(context.Background(), "u", strings.Repeat("x", maxKeyLength+1))
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestBegin_RedisDown(t *testing.T) {
	store, mr := setupStore(t)
	mr.Close()

	_, err := store.Begin(context.Background(), "u", "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInProgress))
}
