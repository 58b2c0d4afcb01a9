// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signet-id/signet/internal/platform/constants"
	"github.com/signet-id/signet/internal/platform/sec"
)

// # Refresh Token Store

// RedisRefreshTokenStore implements [RefreshTokenStore] on Redis.
//
// # Storage Layout
//
// Key:   auth:refresh:<sha256-hex-of-token> — the raw token never touches Redis.
// Value: <userID>|<unix-expiry>
//
// The key TTL mirrors the embedded expiry, so Redis reaps stale records on
// its own; the embedded copy lets us tell an expired token apart from an
// unknown one in the narrow window before reaping.
type RedisRefreshTokenStore struct {
	client *redis.Client
	ttl    time.Duration
	clock  Clock
}

// NewRefreshTokenStore creates a Redis-backed [RefreshTokenStore].
//
// # Parameters
//   - client: Connected Redis client.
//   - ttl: Lifetime of each issued token.
//   - clock: Time source; nil falls back to the system clock.
func NewRefreshTokenStore(client *redis.Client, ttl time.Duration, clock Clock) *RedisRefreshTokenStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RedisRefreshTokenStore{client: client, ttl: ttl, clock: clock}
}

/*
Issue mints a fresh opaque refresh token for the given user.

Description: Generates a cryptographically random token, stores its hash
with the owning userID and expiry, and returns the raw token to hand to
the client.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - string: Raw token
  - time.Time: Absolute expiry
  - error: Generation or persistence failures
*/
func (store *RedisRefreshTokenStore) Issue(context context.Context, userID string) (string, time.Time, error) {
	token, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("redis_refresh_store_generate_failed: %w", err)
	}

	expiresAt := store.clock.Now().Add(store.ttl)
	if err := store.persist(context, token, userID, expiresAt); err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

/*
ConsumeAndRotate atomically consumes the old token and issues its replacement.

Description: GETDEL guarantees that of any number of concurrent rotations on
the same token, exactly one observes the record; every other caller gets
ErrRefreshTokenNotFound. A replayed token therefore always fails. The consume
also serves as lazy cleanup: once read, the record is gone regardless of
outcome.

Parameters:
  - context: context.Context
  - oldToken: string

Returns:
  - string: Replacement raw token
  - time.Time: Replacement expiry
  - string: Owning userID
  - error: ErrRefreshTokenNotFound, ErrRefreshTokenExpired, or storage failures
*/
func (store *RedisRefreshTokenStore) ConsumeAndRotate(context context.Context, oldToken string) (string, time.Time, string, error) {
	key := constants.RedisPrefixRefreshToken + sec.HashToken(oldToken)

	// Atomic read-and-delete: the rotation's anti-replay guarantee lives here.
	value, err := store.client.GetDel(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", time.Time{}, "", ErrRefreshTokenNotFound
		}
		return "", time.Time{}, "", fmt.Errorf("redis_refresh_store_consume_failed: %w", err)
	}

	userID, expiresAt, err := decodeRecord(value)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("redis_refresh_store_decode_failed: %w", err)
	}

	if !store.clock.Now().Before(expiresAt) {
		return "", time.Time{}, "", ErrRefreshTokenExpired
	}

	newToken, newExpiresAt, err := store.Issue(context, userID)
	if err != nil {
		return "", time.Time{}, "", err
	}

	return newToken, newExpiresAt, userID, nil
}

/*
Revoke invalidates a refresh token immediately.

Description: Deleting an absent key is not an error, which keeps logout
idempotent.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Storage failures
*/
func (store *RedisRefreshTokenStore) Revoke(context context.Context, token string) error {
	key := constants.RedisPrefixRefreshToken + sec.HashToken(token)

	if err := store.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_refresh_store_revoke_failed: %w", err)
	}
	return nil
}

// # Internals

// persist writes the hashed-token record with a TTL matching its expiry.
func (store *RedisRefreshTokenStore) persist(context context.Context, token, userID string, expiresAt time.Time) error {
	key := constants.RedisPrefixRefreshToken + sec.HashToken(token)
	value := encodeRecord(userID, expiresAt)

	ttl := expiresAt.Sub(store.clock.Now())
	if err := store.client.Set(context, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis_refresh_store_set_failed: %w", err)
	}
	return nil
}

// encodeRecord flattens a token record into the <userID>|<unix-expiry> form.
func encodeRecord(userID string, expiresAt time.Time) string {
	return userID + "|" + strconv.FormatInt(expiresAt.Unix(), 10)
}

// decodeRecord parses the stored <userID>|<unix-expiry> value.
func decodeRecord(value string) (string, time.Time, error) {
	userID, rawExpiry, found := strings.Cut(value, "|")
	if !found || userID == "" {
		return "", time.Time{}, fmt.Errorf("malformed record %q", value)
	}

	unixExpiry, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed expiry %q", rawExpiry)
	}

	return userID, time.Unix(unixExpiry, 0), nil
}
