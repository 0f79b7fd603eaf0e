// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Logout messages.
const (
	MsgLogout           = "Logout successful"
	MsgLogoutAllDevices = "Logout successful from all devices"
)

// LogoutInput ends one session, or all of them when LogoutAllDevices is set.
type LogoutInput struct {
	UserID           string `json:"userId"`
	RefreshToken     string `json:"refreshToken"`
	LogoutAllDevices bool   `json:"logoutAllDevices,omitempty"`
}

// Logout revokes refresh tokens.
type Logout struct {
	deps Dependencies
}

// NewLogout requires Users and Tokens.
func NewLogout(deps Dependencies) (*Logout, error) {
	deps, err := deps.prepare(needUsers | needTokens)
	if err != nil {
		return nil, err
	}
	return &Logout{deps: deps}, nil
}

// Execute revokes the session. Unknown tokens count as already logged out.
func (uc *Logout) Execute(ctx context.Context, in LogoutInput) MessageResult {
	msg, failure := run(ctx, uc.deps.Logger, OpLogout, func(ctx context.Context) (string, error) {
		return uc.logout(ctx, in)
	})
	if failure != nil {
		return MessageResult{Error: failure.Message, Code: failure.Code}
	}
	return MessageResult{Success: true, Message: msg}
}

func (uc *Logout) logout(ctx context.Context, in LogoutInput) (string, error) {
	if err := requireFields(
		field{in.UserID, "User ID is required and must be a string"},
		field{in.RefreshToken, "Refresh token is required and must be a string"},
	); err != nil {
		return "", err
	}

	if _, err := uc.deps.Users.FindByID(ctx, in.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code(CodeUserNotFound).With("user_id", in.UserID).Errorf("User not found")
		}
		return "", storeError("find user by id", err)
	}

	if in.LogoutAllDevices {
		if err := uc.deps.Tokens.RevokeAllUserTokens(ctx, in.UserID); err != nil {
			return "", storeError("revoke all user tokens", err)
		}
		uc.deps.Logger.InfoContext(ctx, "user logged out from all devices", "user_id", in.UserID)
		return MsgLogoutAllDevices, nil
	}

	record, err := uc.deps.Tokens.FindRefreshToken(ctx, in.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MsgLogout, nil
		}
		return "", storeError("find refresh token", err)
	}
	if record.UserID != in.UserID {
		uc.deps.Logger.WarnContext(ctx, "logout with token of another user",
			"user_id", in.UserID,
			"token_owner", record.UserID)
		return "", oops.Code(CodeTokenOwner).With("user_id", in.UserID).Errorf("Token does not belong to user")
	}

	if err := uc.deps.Tokens.RevokeRefreshToken(ctx, in.RefreshToken); err != nil {
		return "", storeError("revoke refresh token", err)
	}
	uc.deps.Logger.InfoContext(ctx, "user logged out", "user_id", in.UserID)
	return MsgLogout, nil
}
