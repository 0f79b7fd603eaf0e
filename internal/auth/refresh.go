// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// RefreshInput carries the refresh token to exchange.
type RefreshInput struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshSession exchanges a refresh token for a new access token,
// rotating the refresh token when the policy requires it.
type RefreshSession struct {
	deps Dependencies
}

// NewRefreshSession requires Users, Tokens and Issuer.
func NewRefreshSession(deps Dependencies) (*RefreshSession, error) {
	deps, err := deps.prepare(needUsers | needTokens | needIssuer)
	if err != nil {
		return nil, err
	}
	return &RefreshSession{deps: deps}, nil
}

// Execute validates the refresh token and issues new tokens.
func (uc *RefreshSession) Execute(ctx context.Context, in RefreshInput) AuthResult {
	s, failure := run(ctx, uc.deps.Logger, OpRefresh, func(ctx context.Context) (*session, error) {
		return uc.refresh(ctx, in)
	})
	if failure != nil {
		return AuthResult{Error: failure.Message, Code: failure.Code}
	}
	return AuthResult{Success: true, Tokens: s.tokens, User: s.user}
}

func (uc *RefreshSession) refresh(ctx context.Context, in RefreshInput) (*session, error) {
	if err := requireFields(field{in.RefreshToken, "Refresh token is required and must be a string"}); err != nil {
		return nil, err
	}
	if !uc.deps.Issuer.VerifyRefreshToken(in.RefreshToken) {
		return nil, oops.Code(CodeTokenInvalid).Errorf("Invalid refresh token")
	}

	record, err := uc.deps.Tokens.FindRefreshToken(ctx, in.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeTokenNotFound).Errorf("Refresh token not found or revoked")
		}
		return nil, storeError("find refresh token", err)
	}

	now := uc.deps.Clock.Now()
	if uc.deps.Security.IsRefreshTokenExpired(record.ExpiresAt, now) {
		if err := uc.deps.Tokens.RevokeRefreshToken(ctx, in.RefreshToken); err != nil {
			return nil, storeError("revoke expired refresh token", err)
		}
		return nil, oops.Code(CodeTokenExpired).With("user_id", record.UserID).Errorf("Refresh token expired")
	}

	user, err := uc.deps.Users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).With("user_id", record.UserID).Errorf("User not found")
		}
		return nil, storeError("find user by id", err)
	}

	if !user.IsActive() {
		if err := uc.deps.Tokens.RevokeAllUserTokens(ctx, user.ID()); err != nil {
			return nil, storeError("revoke tokens of inactive user", err)
		}
		uc.deps.Logger.WarnContext(ctx, "refresh rejected for inactive user, tokens revoked", "user_id", user.ID())
		return nil, oops.Code(CodeAccountDisabled).With("user_id", user.ID()).Errorf("Account is deactivated")
	}

	access, err := uc.deps.Issuer.GenerateAccessToken(TokenClaims{
		UserID: user.ID(),
		Email:  user.Email().String(),
		Role:   user.Role(),
	}, uc.deps.Security.AccessTokenTTL)
	if err != nil {
		return nil, oops.Code(codeTokenIssue).With("operation", "generate access token").Wrap(err)
	}

	refresh := in.RefreshToken
	if uc.deps.Security.RequireTokenRotation {
		refresh, err = uc.rotate(ctx, user.ID(), in.RefreshToken, now)
		if err != nil {
			return nil, err
		}
	}

	return &session{
		tokens: &TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    int64(uc.deps.Security.AccessTokenTTL / time.Second),
		},
		user: viewOf(user),
	}, nil
}

// rotate replaces old with a freshly generated refresh token.
func (uc *RefreshSession) rotate(ctx context.Context, userID, old string, now time.Time) (string, error) {
	next, err := uc.deps.Issuer.GenerateRefreshToken()
	if err != nil {
		return "", oops.Code(codeTokenIssue).With("operation", "generate refresh token").Wrap(err)
	}
	expiresAt := uc.deps.Security.RefreshTokenExpiration(now)

	if err := uc.deps.Tokens.RevokeRefreshToken(ctx, old); err != nil {
		return "", storeError("revoke rotated refresh token", err)
	}
	if err := uc.deps.Tokens.SaveRefreshToken(ctx, userID, next, expiresAt); err != nil {
		return "", storeError("save rotated refresh token", err)
	}
	return next, nil
}
