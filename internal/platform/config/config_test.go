// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-id/signet/internal/platform/config"
)

// setRequired populates the minimum environment a successful Load needs.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/signet")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "test-secret")
}

/*
TestLoad_Defaults verifies default values for optional settings.
*/
func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.False(t, cfg.RequireEmailVerification)
	assert.Empty(t, cfg.KafkaBrokers)
}

/*
TestLoad_MissingSecret verifies that a missing JWT secret fails the load.
This is the startup-fatal misconfiguration path.
*/
func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/signet")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	// t.Setenv cannot unset; force absence and restore afterwards.
	t.Setenv("JWT_SECRET", "placeholder")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := config.Load()
	assert.Error(t, err)
}

/*
TestLoad_Overrides verifies explicit environment values win over defaults.
*/
func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("REQUIRE_EMAIL_VERIFICATION", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.True(t, cfg.RequireEmailVerification)
}
