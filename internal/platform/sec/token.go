// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// # Opaque Tokens

// GenerateSecureToken returns a URL-safe, cryptographically random string
// built from byteLength bytes of entropy.
//
// The output is opaque: it carries no structure, cannot be parsed, and is
// only usable as a lookup key. Used for refresh, verification, and reset
// tokens.
func GenerateSecureToken(byteLength int) (string, error) {
	raw := make([]byte, byteLength)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// Stores never persist the raw refresh token, only its hash, so a leaked
// storage snapshot cannot be replayed as live credentials.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
