package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStoreTest(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, ttl), mr
}

func TestRedisStore_RoundTripDropsDigest(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t, time.Hour)

	require.NoError(t, s.Put(ctx, "sid-1", testAccount()))

	raw, err := mr.Get("gatekeeper:session:sid-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret-digest")
	assert.Equal(t, time.Hour, mr.TTL("gatekeeper:session:sid-1"))

	got, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1234567890), got.ID)
	assert.Equal(t, "alice1", got.Handle)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Nil(t, got.CredentialDigest)
}

func TestRedisStore_RemoveReportsExistence(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStoreTest(t, time.Hour)

	require.NoError(t, s.Put(ctx, "sid", testAccount()))

	existed, err := s.Remove(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Remove(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = s.Get(ctx, "sid")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t, time.Minute)

	require.NoError(t, s.Put(ctx, "sid", testAccount()))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "sid")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t, time.Minute)

	require.NoError(t, mr.Set("gatekeeper:session:bad", "{not json"))

	_, err := s.Get(ctx, "bad")
	assert.True(t, errors.Is(err, common.ErrorStorage))
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t, time.Minute)
	mr.Close()

	err := s.Put(ctx, "sid", testAccount())
	assert.True(t, errors.Is(err, common.ErrorStorage))

	_, err = s.Remove(ctx, "sid")
	assert.True(t, errors.Is(err, common.ErrorStorage))
}
