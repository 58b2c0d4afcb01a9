// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-id/signet/internal/platform/sec"
)

const testSecret = "unit-test-signing-secret"

/*
TestTokenService_RoundTrip verifies that issued claims survive verification.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, "signet-test")
	require.NoError(t, err)

	signed, err := service.GenerateAccessToken("user-1", "a@x.com", "USER", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := service.VerifyToken(signed)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "signet-test", claims.Issuer)
}

/*
TestTokenService_Expired verifies that an expired token maps to the
distinguished ErrTokenExpired condition, not the generic invalid one.
*/
func TestTokenService_Expired(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, "signet-test")
	require.NoError(t, err)

	signed, err := service.GenerateAccessToken("user-1", "a@x.com", "USER", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = service.VerifyToken(signed)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
	assert.NotErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_Invalid verifies malformed and forged tokens map to
ErrTokenInvalid.
*/
func TestTokenService_Invalid(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, "signet-test")
	require.NoError(t, err)

	otherService, err := sec.NewTokenService("a-completely-different-secret", "signet-test")
	require.NoError(t, err)

	forged, err := otherService.GenerateAccessToken("user-1", "a@x.com", "ADMIN", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"empty", ""},
		{"wrong_secret", forged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.VerifyToken(tt.token)
			assert.ErrorIs(t, err, sec.ErrTokenInvalid)
		})
	}
}

/*
TestNewTokenService_MissingSecret verifies that an unset signing secret is
rejected at construction time (startup failure, not per-call).
*/
func TestNewTokenService_MissingSecret(t *testing.T) {
	_, err := sec.NewTokenService("", "signet-test")
	assert.Error(t, err)
}

/*
TestGenerateSecureToken verifies uniqueness and URL-safety of opaque tokens.
*/
func TestGenerateSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	second, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "=")
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
}

/*
TestHashToken verifies the digest is stable and never the identity function.
*/
func TestHashToken(t *testing.T) {
	digest := sec.HashToken("some-refresh-token")

	assert.Equal(t, digest, sec.HashToken("some-refresh-token"))
	assert.NotEqual(t, "some-refresh-token", digest)
	assert.Len(t, digest, 64)
}
