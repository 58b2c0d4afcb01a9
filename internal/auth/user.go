// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

/*
Package auth implements the credential-issuing core of the Signet service.

It defines the User entity and the full account lifecycle: registration with
Argon2id password hashing, credential verification, JWT access-token issuance,
refresh-token rotation (Redis-backed), email verification, and password
recovery.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.

  - Service: Orchestrates the credential flows (Register, Login, Refresh).
  - Repositories: Abstracted interfaces for Postgres (users) and Redis
    (refresh tokens).
  - Security: Leverages Argon2id hashing and HMAC-signed JWTs from the
    platform/sec package.
*/
package auth

import (
	"time"

	"github.com/signet-id/signet/internal/platform/sec"
)

// # Domain Entities

// User represents a registered Signet account.
//
// Username, FirstName and LastName are optional at registration time and
// therefore pointers; nil means the column is NULL.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Username     *string      `json:"username,omitempty"`
	FirstName    *string      `json:"first_name,omitempty"`
	LastName     *string      `json:"last_name,omitempty"`
	Role         sec.UserRole `json:"role"`
	IsVerified   bool         `json:"is_verified"`

	// VerifyToken holds the pending email-verification token, cleared once used.
	VerifyToken *string `json:"-"`

	// ResetToken and ResetExpires track an in-flight password recovery.
	// Both are cleared when the reset completes.
	ResetToken   *string    `json:"-"`
	ResetExpires *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldUsername     = "username"
	FieldFirstName    = "first_name"
	FieldLastName     = "last_name"
	FieldToken        = "token"
	FieldNewPassword  = "new_password"
	FieldRefreshToken = "refresh_token"
	FieldAccessToken  = "access_token"
	FieldTokenType    = "token_type"
	FieldExpiresIn    = "expires_in"
	FieldUser         = "user"
	FieldMessage      = "message"
)
