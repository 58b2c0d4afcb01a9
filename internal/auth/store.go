// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package auth

import (
	"context"
	"errors"
	"time"
)

// # Refresh Token Signals

var (
	// ErrRefreshTokenNotFound indicates the token was never issued, was
	// already consumed by a rotation, or was revoked.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	// ErrRefreshTokenExpired indicates the token existed but its embedded
	// expiry has passed. The stale record is removed as a side effect.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// Clock abstracts time.Now so expiry behavior is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production [Clock] backed by the wall clock.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		Create persists a brand-new user account to the storage.

		Description: Uniqueness of email and username is enforced by the store;
		violations surface as client-safe Conflict errors.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given (lowercased) email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		FindByVerificationToken returns the account holding the given
		email-verification token.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByVerificationToken(context context.Context, token string) (*User, error)

	/*
		FindByResetToken returns the account holding the given password-reset
		token, regardless of whether the token has expired.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByResetToken(context context.Context, token string) (*User, error)

	/*
		MarkVerified flips isverified to true and clears the verification token.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkVerified(context context.Context, userID string) error

	/*
		SetResetToken records a pending password-reset token and its expiry.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - token: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SetResetToken(context context.Context, userID, token string, expiresAt time.Time) error

	/*
		UpdatePassword replaces the password hash and clears any pending
		reset token, making reset tokens single-use.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		StampLastLogin records the time of a successful authentication.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - at: time.Time

		Returns:
		  - error: Persistence failures
	*/
	StampLastLogin(context context.Context, userID string, at time.Time) error
}

// # Refresh Token Data Access

// RefreshTokenStore defines the contract for opaque refresh-token records.
//
// Tokens are single-use by construction: a successful rotation consumes the
// old record atomically, so of any number of concurrent attempts on the same
// token exactly one succeeds and the rest observe [ErrRefreshTokenNotFound].
type RefreshTokenStore interface {

	/*
		Issue mints a fresh opaque token bound to the userID.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - string: Raw token to hand to the client
		  - time.Time: Absolute expiry
		  - error: Generation or persistence failures
	*/
	Issue(context context.Context, userID string) (string, time.Time, error)

	/*
		ConsumeAndRotate atomically consumes the old token and issues a
		replacement bound to the same user.

		Parameters:
		  - context: context.Context
		  - oldToken: string

		Returns:
		  - string: Replacement raw token
		  - time.Time: Replacement expiry
		  - string: Owning userID
		  - error: ErrRefreshTokenNotFound, ErrRefreshTokenExpired, or storage failures
	*/
	ConsumeAndRotate(context context.Context, oldToken string) (string, time.Time, string, error)

	/*
		Revoke invalidates a token immediately. Revoking an unknown token is
		a no-op so logout stays idempotent.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - error: Storage failures
	*/
	Revoke(context context.Context, token string) error
}
