// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/signet-id/signet/internal/platform/apperr"
	"github.com/signet-id/signet/internal/platform/events"
	"github.com/signet-id/signet/internal/platform/sec"
)

// # Contracts & Types

// TokenProvider defines the contract for generating signed access tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - email: The email of the account.
	//   - role: The role of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID, email, role string, timeToLive time.Duration) (string, error)
}

// EventPublisher defines the contract for emitting auth lifecycle events.
// Implementations must be fire-and-forget; publishing never fails a request.
type EventPublisher interface {
	Publish(context context.Context, name, userID string)
}

// Service implements the credential-issuing use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// issuance, or login logic must be reviewed by the security team.
type Service struct {
	userRepository  UserRepository
	refreshTokens   RefreshTokenStore
	tokenProvider   TokenProvider
	eventPublisher  EventPublisher
	logger          *slog.Logger
	clock           Clock
	accessTokenTTL  time.Duration
	requireVerified bool
}

// ServiceOptions tunes the orchestrator's policy knobs.
type ServiceOptions struct {
	// AccessTokenTTL overrides DefaultAccessTokenTTL when positive.
	AccessTokenTTL time.Duration

	// RequireVerifiedEmail blocks logins from accounts that never confirmed
	// their email address.
	RequireVerifiedEmail bool

	// Clock overrides the system clock, mainly for tests.
	Clock Clock
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	refreshStore RefreshTokenStore,
	tokenProv TokenProvider,
	publisher EventPublisher,
	logger *slog.Logger,
	options ServiceOptions,
) *Service {
	if options.AccessTokenTTL <= 0 {
		options.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if options.Clock == nil {
		options.Clock = SystemClock{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}

	return &Service{
		userRepository:  userRepo,
		refreshTokens:   refreshStore,
		tokenProvider:   tokenProv,
		eventPublisher:  publisher,
		logger:          logger,
		clock:           options.Clock,
		accessTokenTTL:  options.AccessTokenTTL,
		requireVerified: options.RequireVerifiedEmail,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new account.
// Username, FirstName and LastName may be nil.
type RegisterInput struct {
	Email     string
	Password  string
	Username  *string
	FirstName *string
	LastName  *string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Normalizes the email, hashes the password with Argon2id, and
persists the account with a pending email-verification token. Uniqueness is
enforced by the store's unique indexes, so a registration race still yields
a clean Conflict.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	email := NormalizeEmail(input.Email)

	// Fast-path uniqueness checks for friendly errors. The unique indexes
	// are still the authority under concurrency.
	if _, err := service.userRepository.FindByEmail(context, email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}
	if input.Username != nil {
		if _, err := service.userRepository.FindByUsername(context, *input.Username); err == nil {
			return nil, apperr.Conflict("Username is already taken")
		}
	}

	// Prevent storing plain-text passwords.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Pending verification token, cleared when the email is confirmed.
	verifyToken, err := sec.GenerateSecureToken(VerificationTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_verify_token_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("auth_service_id_generation_failed: %w", err)
	}

	user := &User{
		ID:           id.String(),
		Email:        email,
		PasswordHash: hashedPassword,
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         sec.RoleUser,
		IsVerified:   false,
		VerifyToken:  &verifyToken,
	}

	// Persist the user. Conflict errors from the store pass through untouched.
	if err := service.userRepository.Create(context, user); err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// No mail sender is wired yet; surface the token for the operator.
	// TODO: hand the token to the notification service once it ships.
	service.logger.Info("verification_token_issued",
		slog.String("user_id", user.ID),
		slog.String("verify_token", verifyToken),
	)

	service.eventPublisher.Publish(context, events.UserRegistered, user.ID)

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// Session represents a successfully established user session.
type Session struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

/*
Login validates user credentials and issues security tokens.

Description: Verifies identity, performs constant-time password comparison,
and establishes a fresh session with a rotatable refresh token.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *Session: Transport-ready session identifiers
  - err: Unauthorized, Forbidden (unverified email), or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*Session, error) {

	user, err := service.userRepository.FindByEmail(context, NormalizeEmail(input.Email))

	// If (err != nil) the user does not exist. Generic message to prevent enumeration.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	// Constant-time hash comparison. Same generic message as the lookup miss.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	if service.requireVerified && !user.IsVerified {
		return nil, apperr.Forbidden("Email address has not been verified")
	}

	session, err := service.issueSession(context, user)
	if err != nil {
		return nil, err
	}

	// Best-effort bookkeeping; a failed stamp must not void the login.
	now := service.clock.Now()
	if err := service.userRepository.StampLastLogin(context, user.ID, now); err != nil {
		service.logger.Warn("last_login_stamp_failed", slog.String("user_id", user.ID), slog.Any("error", err))
	} else {
		user.LastLoginAt = &now
	}

	service.eventPublisher.Publish(context, events.UserLoggedIn, user.ID)

	return session, nil
}

/*
Logout revokes the presented refresh token.

Description: Idempotent — revoking an unknown or already-consumed token is
still a successful logout.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: Revocation failures
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {
	if err := service.refreshTokens.Revoke(context, refreshToken); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

// # Session Management

/*
RefreshSession implements the refresh-token rotation mechanism.

Description: Atomically consumes the presented refresh token and issues a
fresh token pair. A concurrent or replayed rotation of the same token loses
the race and is rejected, which caps the blast radius of a stolen token.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *Session: New session credentials
  - err: Unauthorized or storage failures
*/
func (service *Service) RefreshSession(context context.Context, refreshToken string) (*Session, error) {

	newToken, expiresAt, userID, err := service.refreshTokens.ConsumeAndRotate(context, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) || errors.Is(err, ErrRefreshTokenExpired) {
			return nil, apperr.Unauthorized("Invalid or expired refresh token")
		}
		return nil, fmt.Errorf("auth_service_refresh_rotate_failed: %w", err)
	}

	// Resolve the owning account; a deleted user invalidates the session.
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Email, string(user.Role), service.accessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	return &Session{
		AccessToken:           accessToken,
		RefreshToken:          newToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

/*
GetProfile returns the account behind an authenticated request.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *User: Hydrated entity
  - err: apperr.NotFound or retrieval failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (*User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// # Email Verification

/*
VerifyEmail confirms a user's email address using a secure token.

Description: Resolves the token to its account, flips the verified flag,
and clears the token so it cannot be replayed.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - err: ValidationError (unknown token) or database errors
*/
func (service *Service) VerifyEmail(context context.Context, token string) error {

	user, err := service.userRepository.FindByVerificationToken(context, token)
	if err != nil {
		return apperr.BadRequest("Invalid verification token")
	}

	if err := service.userRepository.MarkVerified(context, user.ID); err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	return nil
}

// # Password Recovery

/*
ForgotPassword initiates the forgot-password flow.

Description: Issues a short-lived reset token for the account. An unknown
email produces the same successful outcome as a known one to prevent
account enumeration.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: Generation or persistence failures
*/
func (service *Service) ForgotPassword(context context.Context, email string) error {

	user, err := service.userRepository.FindByEmail(context, NormalizeEmail(email))
	if err != nil {
		// Unknown email: succeed silently, reveal nothing.
		return nil
	}

	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	expiresAt := service.clock.Now().Add(ResetTokenTTL)
	if err := service.userRepository.SetResetToken(context, user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	// No mail sender is wired yet; surface the token for the operator.
	service.logger.Info("reset_token_issued",
		slog.String("user_id", user.ID),
		slog.String("reset_token", token),
	)

	return nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Verifies the token and its expiry, hashes the new password,
and updates the account. The update clears the token, making it single-use.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - err: ValidationError (unknown/expired token) or update failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {

	user, err := service.userRepository.FindByResetToken(context, token)
	if err != nil {
		return apperr.BadRequest("Invalid or expired reset token")
	}

	// Expired tokens get the same answer as unknown ones.
	if user.ResetExpires == nil || !service.clock.Now().Before(*user.ResetExpires) {
		return apperr.BadRequest("Invalid or expired reset token")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	service.eventPublisher.Publish(context, events.UserPasswordReset, user.ID)

	return nil
}

// # Internals

// issueSession mints the access/refresh token pair for an authenticated user.
func (service *Service) issueSession(context context.Context, user *User) (*Session, error) {
	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Email, string(user.Role), service.accessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	refreshToken, expiresAt, err := service.refreshTokens.Issue(context, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	return &Session{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

// NormalizeEmail lowercases and trims an email so lookups and the unique
// index agree on a single canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
