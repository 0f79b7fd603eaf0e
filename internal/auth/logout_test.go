// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/internal/auth/authtest"
)

func newLogout(t *testing.T) (*fixture, *auth.Logout) {
	t.Helper()
	f := newFixture(t)
	uc, err := auth.NewLogout(f.deps())
	require.NoError(t, err)
	return f, uc
}

func TestLogout_SingleDevice(t *testing.T) {
	f, uc := newLogout(t)
	f.users.On("FindByID", mock.Anything, "7").Return(authtest.NewUser(t, authtest.WithID("7")), nil)
	f.tokens.On("FindRefreshToken", mock.Anything, "tok").
		Return(&auth.TokenRecord{UserID: "7", ExpiresAt: f.clock.Now().Add(time.Hour)}, nil)
	f.tokens.On("RevokeRefreshToken", mock.Anything, "tok").Return(nil).Once()

	result := uc.Execute(context.Background(), auth.LogoutInput{UserID: "7", RefreshToken: "tok"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, auth.MsgLogout, result.Message)
}

func TestLogout_AllDevices(t *testing.T) {
	f, uc := newLogout(t)
	f.users.On("FindByID", mock.Anything, "7").Return(authtest.NewUser(t, authtest.WithID("7")), nil)
	f.tokens.On("RevokeAllUserTokens", mock.Anything, "7").Return(nil).Once()

	result := uc.Execute(context.Background(), auth.LogoutInput{UserID: "7", RefreshToken: "tok", LogoutAllDevices: true})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, auth.MsgLogoutAllDevices, result.Message)
	f.tokens.AssertNotCalled(t, "FindRefreshToken", mock.Anything, mock.Anything)
}

func TestLogout_UnknownTokenIsIdempotent(t *testing.T) {
	f, uc := newLogout(t)
	f.users.On("FindByID", mock.Anything, "7").Return(authtest.NewUser(t, authtest.WithID("7")), nil)
	f.tokens.On("FindRefreshToken", mock.Anything, "gone").Return(nil, auth.ErrNotFound)

	result := uc.Execute(context.Background(), auth.LogoutInput{UserID: "7", RefreshToken: "gone"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, auth.MsgLogout, result.Message)
	f.tokens.AssertNotCalled(t, "RevokeRefreshToken", mock.Anything, mock.Anything)
}

func TestLogout_Rejections(t *testing.T) {
	t.Run("token of another user", func(t *testing.T) {
		f, uc := newLogout(t)
		f.users.On("FindByID", mock.Anything, "7").Return(authtest.NewUser(t, authtest.WithID("7")), nil)
		f.tokens.On("FindRefreshToken", mock.Anything, "tok").
			Return(&auth.TokenRecord{UserID: "8", ExpiresAt: f.clock.Now().Add(time.Hour)}, nil)

		result := uc.Execute(context.Background(), auth.LogoutInput{UserID: "7", RefreshToken: "tok"})

		assert.Equal(t, auth.CodeTokenOwner, result.Code)
		assert.Equal(t, "Token does not belong to user", result.Error)
		f.tokens.AssertNotCalled(t, "RevokeRefreshToken", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		f, uc := newLogout(t)
		f.users.On("FindByID", mock.Anything, "404").Return(nil, auth.ErrNotFound)

		result := uc.Execute(context.Background(), auth.LogoutInput{UserID: "404", RefreshToken: "tok"})
		assert.Equal(t, auth.CodeUserNotFound, result.Code)
	})

	t.Run("missing user id", func(t *testing.T) {
		_, uc := newLogout(t)
		result := uc.Execute(context.Background(), auth.LogoutInput{RefreshToken: "tok"})
		assert.Equal(t, auth.CodeMissingField, result.Code)
		assert.Equal(t, "User ID is required and must be a string", result.Error)
	})

	t.Run("missing token", func(t *testing.T) {
		_, uc := newLogout(t)
		result := uc.Execute(context.Background(), auth.LogoutInput{UserID: "7"})
		assert.Equal(t, auth.CodeMissingField, result.Code)
		assert.Equal(t, "Refresh token is required and must be a string", result.Error)
	})
}
