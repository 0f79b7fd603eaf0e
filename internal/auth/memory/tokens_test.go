// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/internal/auth/authtest"
	"github.com/uctgym/gymauth/internal/auth/memory"
)

func TestTokenRepository_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTokenRepository()
	expires := authtest.Epoch.Add(time.Hour)

	require.NoError(t, repo.SaveRefreshToken(ctx, "1", "token-a", expires))

	rec, err := repo.FindRefreshToken(ctx, "token-a")
	require.NoError(t, err)
	assert.Equal(t, &auth.TokenRecord{UserID: "1", ExpiresAt: expires}, rec)

	_, err = repo.FindResetToken(ctx, "token-a")
	require.ErrorIs(t, err, auth.ErrNotFound, "refresh and reset tokens are separate")

	require.NoError(t, repo.RevokeRefreshToken(ctx, "token-a"))
	_, err = repo.FindRefreshToken(ctx, "token-a")
	require.ErrorIs(t, err, auth.ErrNotFound)

	assert.NoError(t, repo.RevokeRefreshToken(ctx, "never-stored"))
}

func TestTokenRepository_ResetTokens(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTokenRepository()
	expires := authtest.Epoch.Add(time.Hour)

	require.NoError(t, repo.SaveResetToken(ctx, "1", "reset-a", expires))
	assert.Equal(t, 1, repo.ResetTokens("1"))

	rec, err := repo.FindResetToken(ctx, "reset-a")
	require.NoError(t, err)
	assert.Equal(t, "1", rec.UserID)

	require.NoError(t, repo.RevokeResetToken(ctx, "reset-a"))
	_, err = repo.FindResetToken(ctx, "reset-a")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestTokenRepository_RevokeAllUserTokens(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTokenRepository()
	expires := authtest.Epoch.Add(time.Hour)

	require.NoError(t, repo.SaveRefreshToken(ctx, "1", "a", expires))
	require.NoError(t, repo.SaveRefreshToken(ctx, "1", "b", expires))
	require.NoError(t, repo.SaveResetToken(ctx, "1", "r", expires))
	require.NoError(t, repo.SaveRefreshToken(ctx, "2", "c", expires))

	require.NoError(t, repo.RevokeAllUserTokens(ctx, "1"))

	assert.Zero(t, repo.RefreshTokens("1"))
	assert.Zero(t, repo.ResetTokens("1"))
	assert.Equal(t, 1, repo.RefreshTokens("2"))
}

func TestTokenRepository_CleanExpiredTokens(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTokenRepository()
	now := authtest.Epoch

	require.NoError(t, repo.SaveRefreshToken(ctx, "1", "expired", now.Add(-time.Minute)))
	require.NoError(t, repo.SaveRefreshToken(ctx, "1", "boundary", now))
	require.NoError(t, repo.SaveRefreshToken(ctx, "1", "live", now.Add(time.Minute)))
	require.NoError(t, repo.SaveResetToken(ctx, "1", "old-reset", now.Add(-time.Hour)))

	removed, err := repo.CleanExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	_, err = repo.FindRefreshToken(ctx, "live")
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.RefreshTokens("1"))
	assert.Zero(t, repo.ResetTokens("1"))
}
