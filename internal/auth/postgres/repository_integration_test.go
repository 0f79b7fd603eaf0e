// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/internal/auth/authtest"
	"github.com/uctgym/gymauth/internal/auth/postgres"
	"github.com/uctgym/gymauth/pkg/errutil"
)

func saveUser(t *testing.T, email string) *auth.User {
	t.Helper()
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	saved, err := repo.Save(ctx, authtest.NewUser(t, authtest.WithID(""), authtest.WithEmail(email)))
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, saved.ID())
	})
	return saved
}

func TestUserRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	saved := saveUser(t, "roundtrip@alu.uct.cl")
	assert.Len(t, saved.ID(), 26)

	found, err := repo.FindByEmail(ctx, authtest.MustEmail(t, "roundtrip@alu.uct.cl"))
	require.NoError(t, err)
	assert.True(t, saved.Equals(found))
	assert.Equal(t, auth.RoleAlumno, found.Role())
	assert.True(t, found.IsActive())

	found.IncrementLoginAttempts()
	found.LockAccount(authtest.Epoch, 30*time.Minute)
	found.UpdateLastLogin(authtest.Epoch)
	require.NoError(t, repo.Update(ctx, found))

	reloaded, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.LoginAttempts())
	require.NotNil(t, reloaded.LockedUntil())
	assert.True(t, reloaded.LockedUntil().Equal(authtest.Epoch.Add(30*time.Minute)))
	require.NotNil(t, reloaded.LastLoginAt())
	assert.True(t, reloaded.LastLoginAt().Equal(authtest.Epoch))
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)
	saveUser(t, "dup@alu.uct.cl")

	_, err := repo.Save(ctx, authtest.NewUser(t, authtest.WithID(""), authtest.WithEmail("dup@alu.uct.cl")))
	assert.Equal(t, auth.CodeEmailTaken, errutil.Code(err))
}

func TestUserRepository_UpdateMissing(t *testing.T) {
	repo := postgres.NewUserRepository(testPool)
	err := repo.Update(context.Background(), authtest.NewUser(t, authtest.WithID("01J0MISSING")))
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestTokenRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewTokenRepository(testPool)
	user := saveUser(t, "tokens@alu.uct.cl")

	refresh, err := auth.GenerateRefreshToken()
	require.NoError(t, err)
	reset, err := auth.GenerateRefreshToken()
	require.NoError(t, err)
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.SaveRefreshToken(ctx, user.ID(), refresh, expires))
	require.NoError(t, repo.SaveResetToken(ctx, user.ID(), reset, expires))

	var stored string
	require.NoError(t, testPool.QueryRow(ctx,
		`SELECT token_hash FROM refresh_tokens WHERE user_id = $1`, user.ID()).Scan(&stored))
	assert.NotEqual(t, refresh, stored)
	assert.True(t, auth.VerifyTokenHash(refresh, stored))

	rec, err := repo.FindRefreshToken(ctx, refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID(), rec.UserID)
	assert.True(t, rec.ExpiresAt.Equal(expires))

	_, err = repo.FindResetToken(ctx, refresh)
	assert.ErrorIs(t, err, auth.ErrNotFound, "token kinds do not mix")

	require.NoError(t, repo.RevokeAllUserTokens(ctx, user.ID()))

	_, err = repo.FindRefreshToken(ctx, refresh)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = repo.FindResetToken(ctx, reset)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestTokenRepository_CleanExpiredTokens(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewTokenRepository(testPool)
	user := saveUser(t, "sweep@alu.uct.cl")
	now := time.Now().UTC().Truncate(time.Microsecond)

	live, err := auth.GenerateRefreshToken()
	require.NoError(t, err)
	require.NoError(t, repo.SaveRefreshToken(ctx, user.ID(), live, now.Add(time.Hour)))

	for range 2 {
		stale, err := auth.GenerateRefreshToken()
		require.NoError(t, err)
		require.NoError(t, repo.SaveRefreshToken(ctx, user.ID(), stale, now.Add(-time.Minute)))
	}
	staleReset, err := auth.GenerateRefreshToken()
	require.NoError(t, err)
	require.NoError(t, repo.SaveResetToken(ctx, user.ID(), staleReset, now))

	removed, err := repo.CleanExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	_, err = repo.FindRefreshToken(ctx, live)
	assert.NoError(t, err)
}
