// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

// Postgres implementation of the auth storage contracts.
//
// # Architecture
//
// Repositories here are strictly separated from domain logic. They implement
// the domain-defined interfaces (e.g., [UserRepository]) using the
// [pgxpool.Pool] connection manager.
//
// # Error Mapping
//
// Storage-specific errors (pgx.ErrNoRows, unique violations) are mapped to
// domain-friendly [apperr.AppError] types to avoid leaking storage
// implementation details. Unique-constraint races are resolved here, not by
// service-level pre-checks: the partial unique indexes on users.account are
// the source of truth.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signet-id/signet/internal/platform/apperr"
)

// # User Repository

// userColumns is the canonical SELECT list for hydrating a [User].
const userColumns = `
	id, email, passwordhash, username, firstname, lastname, role, isverified,
	verifytoken, resettoken, resetexpires, lastloginat, createdat, updatedat`

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the users.account table.

Description: Initializes timestamps if absent and translates unique-index
violations into client-safe Conflict errors by constraint name.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict, or database connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, email, passwordhash, username, firstname, lastname, role,
			isverified, verifytoken, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Role,
		user.IsVerified,
		user.VerifyToken,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a user record by their unique ID.

Description: Primary key resolution for user accounts.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users.account WHERE id = $1"
	return repository.findOne(context, query, id, "postgres_user_repo_find_by_id_failed")
}

/*
FindByEmail retrieves a user record by their unique email address.

Description: Callers normalize the email to lowercase before lookup; the
column stores the normalized form.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users.account WHERE email = $1"
	return repository.findOne(context, query, email, "postgres_user_repo_find_by_email_failed")
}

/*
FindByUsername retrieves a user record by their unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users.account WHERE username = $1"
	return repository.findOne(context, query, username, "postgres_user_repo_find_by_username_failed")
}

/*
FindByVerificationToken resolves a pending email-verification token to its account.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByVerificationToken(context context.Context, token string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users.account WHERE verifytoken = $1"
	return repository.findOne(context, query, token, "postgres_user_repo_find_by_verify_token_failed")
}

/*
FindByResetToken resolves a password-reset token to its account.

Description: Expiry is NOT filtered here; the service compares resetexpires
against its clock so an expired token is distinguishable in logs from an
unknown one.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByResetToken(context context.Context, token string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users.account WHERE resettoken = $1"
	return repository.findOne(context, query, token, "postgres_user_repo_find_by_reset_token_failed")
}

/*
MarkVerified updates the user's status to isverified = true and clears the token.

Description: Post-verification cleanup to activate the account. Clearing
verifytoken makes the token single-use.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Database errors
*/
func (repository *PostgresUserRepository) MarkVerified(context context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET isverified = TRUE, verifytoken = NULL, updatedat = $2
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_verified_failed: %w", err)
	}
	return nil
}

/*
SetResetToken records a pending password-reset token with its expiry.

Description: Overwrites any previous pending reset, so only the latest
issued token can complete the flow.

Parameters:
  - context: context.Context
  - userID: string
  - token: string
  - expiresAt: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetResetToken(context context.Context, userID, token string, expiresAt time.Time) error {
	const query = `
		UPDATE users.account
		SET resettoken = $2, resetexpires = $3, updatedat = $4
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, token, expiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_reset_token_failed: %w", err)
	}
	return nil
}

/*
UpdatePassword replaces the password hash and clears the pending reset token.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, resettoken = NULL, resetexpires = NULL, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}
	return nil
}

/*
StampLastLogin records the timestamp of a successful authentication.

Parameters:
  - context: context.Context
  - userID: string
  - at: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) StampLastLogin(context context.Context, userID string, at time.Time) error {
	const query = "UPDATE users.account SET lastloginat = $2 WHERE id = $1"

	_, err := repository.pool.Exec(context, query, userID, at)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_stamp_last_login_failed: %w", err)
	}
	return nil
}

// # Internals

// findOne runs a single-row query and hydrates a [User], mapping pgx.ErrNoRows
// to a client-safe NotFound.
func (repository *PostgresUserRepository) findOne(context context.Context, query, argument, wrapCode string) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(context, query, argument).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.IsVerified,
		&user.VerifyToken,
		&user.ResetToken,
		&user.ResetExpires,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("%s: %w", wrapCode, err)
	}

	return user, nil
}

// mapUniqueViolation inspects an insert error for SQLSTATE 23505 and converts
// the affected constraint into the matching Conflict. Returns nil when the
// error is not a unique violation.
func mapUniqueViolation(err error) *apperr.AppError {
	var pgError *pgconn.PgError
	if !errors.As(err, &pgError) || pgError.Code != pgerrcode.UniqueViolation {
		return nil
	}

	switch pgError.ConstraintName {
	case "uq_account_email":
		return apperr.Conflict("Email is already registered")
	case "uq_account_username":
		return apperr.Conflict("Username is already taken")
	default:
		return apperr.Conflict("Account already exists")
	}
}
