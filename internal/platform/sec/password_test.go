// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package sec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-id/signet/internal/platform/sec"
)

/*
TestHashPassword_RoundTrip verifies that a hashed password verifies true.
*/
func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := sec.HashPassword("Abcdef12")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.True(t, sec.CheckPasswordHash("Abcdef12", hash))
	assert.False(t, sec.CheckPasswordHash("Abcdef13", hash))
}

/*
TestHashPassword_NonDeterministic verifies that the random salt makes two
hashes of the same password differ, while both still verify.
*/
func TestHashPassword_NonDeterministic(t *testing.T) {
	first, err := sec.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	second, err := sec.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, sec.CheckPasswordHash("correct horse battery staple", first))
	assert.True(t, sec.CheckPasswordHash("correct horse battery staple", second))
}

/*
TestHashPassword_EmptyInput verifies that even an empty password hashes and
round-trips. Input policy belongs to the validation layer, not the hasher.
*/
func TestHashPassword_EmptyInput(t *testing.T) {
	hash, err := sec.HashPassword("")
	require.NoError(t, err)

	assert.True(t, sec.CheckPasswordHash("", hash))
	assert.False(t, sec.CheckPasswordHash("not-empty", hash))
}

/*
TestCheckPasswordHash_FailClosed verifies the negative space: malformed or
foreign stored hashes return false without panicking or erroring.
*/
func TestCheckPasswordHash_FailClosed(t *testing.T) {
	tests := []struct {
		name       string
		storedHash string
	}{
		{"empty_hash", ""},
		{"not_a_hash", "not-a-real-hash"},
		{"wrong_algorithm", "$2a$10$N9qo8uLOickgx2ZMRZoMye"},
		{"truncated_phc", "$argon2id$v=19$m=65536"},
		{"bad_version", "$argon2id$v=99$m=65536,t=3,p=1$c2FsdHNhbHRzYWx0c2FsdA$ZGlnZXN0"},
		{"bad_salt_encoding", "$argon2id$v=19$m=65536,t=3,p=1$!!!$ZGlnZXN0"},
		{"bad_digest_encoding", "$argon2id$v=19$m=65536,t=3,p=1$c2FsdHNhbHRzYWx0c2FsdA$!!!"},
		{"unknown_parameter", "$argon2id$v=19$m=65536,t=3,x=1$c2FsdHNhbHRzYWx0c2FsdA$ZGlnZXN0"},
		{"wrong_variant", "$argon2i$v=19$m=65536,t=3,p=1$c2FsdHNhbHRzYWx0c2FsdA$ZGlnZXN0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, sec.CheckPasswordHash("any-password", tt.storedHash))
		})
	}
}
