// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package auth

import "time"

// # Authentication Constraints

const (
	// DefaultAccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the duration a refresh token remains valid.
	// A week balances session longevity against the exposure window of a
	// stolen token.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// RefreshTokenLength is the byte length of the random secure token.
	RefreshTokenLength = 32

	// ResetTokenTTL is the duration a password reset token remains valid.
	// Short-lived (1 hour) for security.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// VerificationTokenLength is the byte length of the random verification token.
	VerificationTokenLength = 32

	// MinPasswordLength is the shortest password accepted at registration and reset.
	MinPasswordLength = 8
)
