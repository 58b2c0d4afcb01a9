// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-id/signet/internal/platform/apperr"
	"github.com/signet-id/signet/internal/platform/events"
	"github.com/signet-id/signet/internal/platform/sec"
)

// # Fakes

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) Advance(delta time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(delta)
}

// memoryUserRepository is an in-memory [UserRepository] for orchestrator tests.
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[string]*User)}
}

func (repository *memoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.users {
		if existing.Email == user.Email {
			return apperr.Conflict("Email is already registered")
		}
		if existing.Username != nil && user.Username != nil && *existing.Username == *user.Username {
			return apperr.Conflict("Username is already taken")
		}
	}

	clone := *user
	repository.users[user.ID] = &clone
	return nil
}

func (repository *memoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repository *memoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	return repository.findBy(func(user *User) bool { return user.Email == email })
}

func (repository *memoryUserRepository) FindByUsername(_ context.Context, username string) (*User, error) {
	return repository.findBy(func(user *User) bool {
		return user.Username != nil && *user.Username == username
	})
}

func (repository *memoryUserRepository) FindByVerificationToken(_ context.Context, token string) (*User, error) {
	return repository.findBy(func(user *User) bool {
		return user.VerifyToken != nil && *user.VerifyToken == token
	})
}

func (repository *memoryUserRepository) FindByResetToken(_ context.Context, token string) (*User, error) {
	return repository.findBy(func(user *User) bool {
		return user.ResetToken != nil && *user.ResetToken == token
	})
}

func (repository *memoryUserRepository) MarkVerified(_ context.Context, userID string) error {
	return repository.mutate(userID, func(user *User) {
		user.IsVerified = true
		user.VerifyToken = nil
	})
}

func (repository *memoryUserRepository) SetResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	return repository.mutate(userID, func(user *User) {
		user.ResetToken = &token
		user.ResetExpires = &expiresAt
	})
}

func (repository *memoryUserRepository) UpdatePassword(_ context.Context, userID, newHash string) error {
	return repository.mutate(userID, func(user *User) {
		user.PasswordHash = newHash
		user.ResetToken = nil
		user.ResetExpires = nil
	})
}

func (repository *memoryUserRepository) StampLastLogin(_ context.Context, userID string, at time.Time) error {
	return repository.mutate(userID, func(user *User) {
		user.LastLoginAt = &at
	})
}

func (repository *memoryUserRepository) findBy(match func(*User) bool) (*User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, user := range repository.users {
		if match(user) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository *memoryUserRepository) mutate(userID string, apply func(*User)) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	apply(user)
	return nil
}

// memoryRefreshStore mirrors the Redis store's single-use rotation semantics.
type memoryRefreshStore struct {
	mu      sync.Mutex
	records map[string]refreshRecord
	clock   Clock
	ttl     time.Duration
}

type refreshRecord struct {
	userID    string
	expiresAt time.Time
}

func newMemoryRefreshStore(clock Clock, ttl time.Duration) *memoryRefreshStore {
	return &memoryRefreshStore{records: make(map[string]refreshRecord), clock: clock, ttl: ttl}
}

func (store *memoryRefreshStore) Issue(_ context.Context, userID string) (string, time.Time, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	token, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := store.clock.Now().Add(store.ttl)
	store.records[sec.HashToken(token)] = refreshRecord{userID: userID, expiresAt: expiresAt}
	return token, expiresAt, nil
}

func (store *memoryRefreshStore) ConsumeAndRotate(ctx context.Context, oldToken string) (string, time.Time, string, error) {
	store.mu.Lock()
	hash := sec.HashToken(oldToken)
	record, ok := store.records[hash]
	delete(store.records, hash)
	store.mu.Unlock()

	if !ok {
		return "", time.Time{}, "", ErrRefreshTokenNotFound
	}
	if !store.clock.Now().Before(record.expiresAt) {
		return "", time.Time{}, "", ErrRefreshTokenExpired
	}

	newToken, newExpiresAt, err := store.Issue(ctx, record.userID)
	if err != nil {
		return "", time.Time{}, "", err
	}
	return newToken, newExpiresAt, record.userID, nil
}

func (store *memoryRefreshStore) Revoke(_ context.Context, token string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.records, sec.HashToken(token))
	return nil
}

// staticTokenProvider mints predictable access tokens.
type staticTokenProvider struct{}

func (staticTokenProvider) GenerateAccessToken(userID, _, _ string, _ time.Duration) (string, error) {
	return "access-" + userID, nil
}

// recordingPublisher captures emitted event names.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (publisher *recordingPublisher) Publish(_ context.Context, name, _ string) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.events = append(publisher.events, name)
}

func (publisher *recordingPublisher) names() []string {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	return append([]string(nil), publisher.events...)
}

// # Harness

type serviceHarness struct {
	service   *Service
	users     *memoryUserRepository
	refresh   *memoryRefreshStore
	clock     *fakeClock
	publisher *recordingPublisher
}

func newServiceHarness(t *testing.T, options ServiceOptions) *serviceHarness {
	t.Helper()

	clock := newFakeClock()
	options.Clock = clock

	users := newMemoryUserRepository()
	refresh := newMemoryRefreshStore(clock, DefaultRefreshTokenTTL)
	publisher := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &serviceHarness{
		service:   NewService(users, refresh, staticTokenProvider{}, publisher, logger, options),
		users:     users,
		refresh:   refresh,
		clock:     clock,
		publisher: publisher,
	}
}

func (harness *serviceHarness) register(t *testing.T, email, password string) *User {
	t.Helper()

	user, err := harness.service.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

// # Registration

func TestService_Register(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})

	username := "casey"
	user, err := harness.service.Register(context.Background(), RegisterInput{
		Email:    "  Casey@Example.COM ",
		Password: "correct horse battery",
		Username: &username,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "casey@example.com", user.Email, "email must be lowercase-normalized")
	assert.Equal(t, sec.RoleUser, user.Role)
	assert.False(t, user.IsVerified)
	require.NotNil(t, user.VerifyToken)
	assert.NotEmpty(t, *user.VerifyToken)

	// The stored hash must verify the original password and never equal it.
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("correct horse battery", user.PasswordHash))

	assert.Equal(t, []string{events.UserRegistered}, harness.publisher.names())
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})
	harness.register(t, "dana@example.com", "first-password")

	_, err := harness.service.Register(context.Background(), RegisterInput{
		Email:    "DANA@example.com",
		Password: "second-password",
	})

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusConflict, appError.HTTPStatus)
}

func TestService_Register_DuplicateUsername(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})

	username := "taken"
	_, err := harness.service.Register(context.Background(), RegisterInput{
		Email:    "first@example.com",
		Password: "first-password",
		Username: &username,
	})
	require.NoError(t, err)

	// A different email cannot claim the same username.
	_, err = harness.service.Register(context.Background(), RegisterInput{
		Email:    "second@example.com",
		Password: "second-password",
		Username: &username,
	})

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusConflict, appError.HTTPStatus)
}

// # Login

func TestService_Login(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})
	registered := harness.register(t, "erin@example.com", "open sesame 123")

	session, err := harness.service.Login(context.Background(), LoginInput{
		Email:    "Erin@Example.com",
		Password: "open sesame 123",
	})
	require.NoError(t, err)

	assert.Equal(t, "access-"+registered.ID, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.True(t, session.RefreshTokenExpiresAt.After(harness.clock.Now()))

	require.NotNil(t, session.User.LastLoginAt)
	assert.Equal(t, harness.clock.Now(), *session.User.LastLoginAt)
}

func TestService_Login_EnumerationResistance(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})
	harness.register(t, "frank@example.com", "the real password")

	_, unknownErr := harness.service.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	_, wrongErr := harness.service.Login(context.Background(), LoginInput{
		Email:    "frank@example.com",
		Password: "not the password",
	})

	unknown := apperr.As(unknownErr)
	wrong := apperr.As(wrongErr)
	require.NotNil(t, unknown)
	require.NotNil(t, wrong)

	// Unknown email and wrong password must be indistinguishable.
	assert.Equal(t, http.StatusUnauthorized, unknown.HTTPStatus)
	assert.Equal(t, unknown.HTTPStatus, wrong.HTTPStatus)
	assert.Equal(t, unknown.Message, wrong.Message)
	assert.Equal(t, unknown.Code, wrong.Code)
}

func TestService_Login_UnverifiedEmail(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{RequireVerifiedEmail: true})
	user := harness.register(t, "gale@example.com", "password-123")

	_, err := harness.service.Login(context.Background(), LoginInput{
		Email:    "gale@example.com",
		Password: "password-123",
	})

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusForbidden, appError.HTTPStatus)

	// Verification unblocks the login.
	require.NoError(t, harness.service.VerifyEmail(context.Background(), *user.VerifyToken))

	_, err = harness.service.Login(context.Background(), LoginInput{
		Email:    "gale@example.com",
		Password: "password-123",
	})
	assert.NoError(t, err)
}

// # Refresh & Logout

func TestService_RefreshSession_RotatesAndRejectsReplay(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})
	registered := harness.register(t, "hana@example.com", "password-123")

	session, err := harness.service.Login(context.Background(), LoginInput{
		Email:    "hana@example.com",
		Password: "password-123",
	})
	require.NoError(t, err)

	rotated, err := harness.service.RefreshSession(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, rotated.User.ID)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	// Replaying the consumed token must fail.
	_, err = harness.service.RefreshSession(context.Background(), session.RefreshToken)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusUnauthorized, appError.HTTPStatus)

	// The rotated token is still live.
	_, err = harness.service.RefreshSession(context.Background(), rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestService_RefreshSession_Expired(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})
	harness.register(t, "iris@example.com", "password-123")

	session, err := harness.service.Login(context.Background(), LoginInput{
		Email:    "iris@example.com",
		Password: "password-123",
	})
	require.NoError(t, err)

	harness.clock.Advance(DefaultRefreshTokenTTL + time.Minute)

	_, err = harness.service.RefreshSession(context.Background(), session.RefreshToken)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusUnauthorized, appError.HTTPStatus)
}

func TestService_Logout_Idempotent(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})
	harness.register(t, "juno@example.com", "password-123")

	session, err := harness.service.Login(context.Background(), LoginInput{
		Email:    "juno@example.com",
		Password: "password-123",
	})
	require.NoError(t, err)

	require.NoError(t, harness.service.Logout(context.Background(), session.RefreshToken))

	// A revoked token cannot refresh.
	_, err = harness.service.RefreshSession(context.Background(), session.RefreshToken)
	assert.Error(t, err)

	// Logging out again, or with garbage, still succeeds.
	assert.NoError(t, harness.service.Logout(context.Background(), session.RefreshToken))
	assert.NoError(t, harness.service.Logout(context.Background(), "never-issued"))
}

// # Email Verification

func TestService_VerifyEmail_SingleUse(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})
	user := harness.register(t, "kiri@example.com", "password-123")
	token := *user.VerifyToken

	require.NoError(t, harness.service.VerifyEmail(context.Background(), token))

	verified, err := harness.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Nil(t, verified.VerifyToken)

	// The consumed token is gone.
	err = harness.service.VerifyEmail(context.Background(), token)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusBadRequest, appError.HTTPStatus)
}

func TestService_VerifyEmail_UnknownToken(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})

	err := harness.service.VerifyEmail(context.Background(), "no-such-token")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusBadRequest, appError.HTTPStatus)
}

// # Password Recovery

func TestService_ForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})

	// No account, no error, nothing persisted.
	assert.NoError(t, harness.service.ForgotPassword(context.Background(), "ghost@example.com"))
}

func TestService_ResetPassword(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})
	user := harness.register(t, "lena@example.com", "old-password-1")

	require.NoError(t, harness.service.ForgotPassword(context.Background(), "lena@example.com"))

	stored, err := harness.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	token := *stored.ResetToken

	require.NoError(t, harness.service.ResetPassword(context.Background(), token, "new-password-9"))

	// Old credentials dead, new ones live.
	_, err = harness.service.Login(context.Background(), LoginInput{Email: "lena@example.com", Password: "old-password-1"})
	assert.Error(t, err)
	_, err = harness.service.Login(context.Background(), LoginInput{Email: "lena@example.com", Password: "new-password-9"})
	assert.NoError(t, err)

	// Single-use: the consumed token is rejected.
	err = harness.service.ResetPassword(context.Background(), token, "another-password")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusBadRequest, appError.HTTPStatus)

	assert.Contains(t, harness.publisher.names(), events.UserPasswordReset)
}

func TestService_ResetPassword_ExpiredToken(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{})
	user := harness.register(t, "mira@example.com", "old-password-1")

	require.NoError(t, harness.service.ForgotPassword(context.Background(), "mira@example.com"))

	stored, err := harness.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)

	harness.clock.Advance(ResetTokenTTL + time.Minute)

	err = harness.service.ResetPassword(context.Background(), *stored.ResetToken, "new-password-9")
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusBadRequest, appError.HTTPStatus)

	// The original password still works after a failed reset.
	_, err = harness.service.Login(context.Background(), LoginInput{Email: "mira@example.com", Password: "old-password-1"})
	assert.NoError(t, err)
}

// # Full Lifecycle

func TestService_AccountLifecycle(t *testing.T) {
	harness := newServiceHarness(t, ServiceOptions{RequireVerifiedEmail: true})

	user := harness.register(t, "noor@example.com", "initial-pass-1")
	require.NoError(t, harness.service.VerifyEmail(context.Background(), *user.VerifyToken))

	session, err := harness.service.Login(context.Background(), LoginInput{
		Email:    "noor@example.com",
		Password: "initial-pass-1",
	})
	require.NoError(t, err)

	rotated, err := harness.service.RefreshSession(context.Background(), session.RefreshToken)
	require.NoError(t, err)

	profile, err := harness.service.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "noor@example.com", profile.Email)
	assert.True(t, profile.IsVerified)

	require.NoError(t, harness.service.Logout(context.Background(), rotated.RefreshToken))

	_, err = harness.service.RefreshSession(context.Background(), rotated.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.As(err).HTTPStatus)
}
