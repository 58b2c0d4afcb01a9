// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-id/signet/internal/platform/constants"
	"github.com/signet-id/signet/internal/platform/sec"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisRefreshTokenStore, *miniredis.Miniredis, *fakeClock) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := newFakeClock()
	return NewRefreshTokenStore(client, ttl, clock), server, clock
}

func TestRedisRefreshTokenStore_IssueAndRotate(t *testing.T) {
	store, server, clock := newRedisStore(t, time.Hour)

	token, expiresAt, err := store.Issue(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, clock.Now().Add(time.Hour), expiresAt)

	// The raw token never appears in Redis; only its hash does.
	key := constants.RedisPrefixRefreshToken + sec.HashToken(token)
	assert.True(t, server.Exists(key))
	assert.False(t, server.Exists(constants.RedisPrefixRefreshToken+token))

	newToken, newExpiresAt, userID, err := store.ConsumeAndRotate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.NotEqual(t, token, newToken)
	assert.Equal(t, clock.Now().Add(time.Hour), newExpiresAt)

	// The consumed record is gone, the replacement is present.
	assert.False(t, server.Exists(key))
	assert.True(t, server.Exists(constants.RedisPrefixRefreshToken+sec.HashToken(newToken)))
}

func TestRedisRefreshTokenStore_ReplayRejected(t *testing.T) {
	store, _, _ := newRedisStore(t, time.Hour)

	token, _, err := store.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	_, _, _, err = store.ConsumeAndRotate(context.Background(), token)
	require.NoError(t, err)

	// Second use of the same token must lose.
	_, _, _, err = store.ConsumeAndRotate(context.Background(), token)
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestRedisRefreshTokenStore_ConcurrentRotation(t *testing.T) {
	store, _, _ := newRedisStore(t, time.Hour)

	token, _, err := store.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	const attempts = 16
	var waitGroup sync.WaitGroup
	results := make(chan error, attempts)

	for range attempts {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			_, _, _, rotateErr := store.ConsumeAndRotate(context.Background(), token)
			results <- rotateErr
		}()
	}
	waitGroup.Wait()
	close(results)

	successes := 0
	for rotateErr := range results {
		if rotateErr == nil {
			successes++
		} else {
			assert.ErrorIs(t, rotateErr, ErrRefreshTokenNotFound)
		}
	}

	// Exactly one rotation may win; everything else is a rejected replay.
	assert.Equal(t, 1, successes)
}

func TestRedisRefreshTokenStore_Expired(t *testing.T) {
	store, server, clock := newRedisStore(t, time.Hour)

	token, _, err := store.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	_, _, _, err = store.ConsumeAndRotate(context.Background(), token)
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)

	// The stale record was consumed on the way out.
	assert.False(t, server.Exists(constants.RedisPrefixRefreshToken+sec.HashToken(token)))

	// And a retry now reads as unknown, not expired.
	_, _, _, err = store.ConsumeAndRotate(context.Background(), token)
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestRedisRefreshTokenStore_Revoke(t *testing.T) {
	store, server, _ := newRedisStore(t, time.Hour)

	token, _, err := store.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	require.NoError(t, store.Revoke(context.Background(), token))
	assert.False(t, server.Exists(constants.RedisPrefixRefreshToken+sec.HashToken(token)))

	_, _, _, err = store.ConsumeAndRotate(context.Background(), token)
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

	// Revoking again is a no-op, not an error.
	assert.NoError(t, store.Revoke(context.Background(), token))
}

func TestRedisRefreshTokenStore_RecordCarriesRedisTTL(t *testing.T) {
	store, server, _ := newRedisStore(t, time.Hour)

	token, _, err := store.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	// Redis reaps the record on its own once the TTL elapses.
	key := constants.RedisPrefixRefreshToken + sec.HashToken(token)
	assert.Equal(t, time.Hour, server.TTL(key))

	server.FastForward(2 * time.Hour)
	assert.False(t, server.Exists(key))
}
