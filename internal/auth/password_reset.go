// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"

	"github.com/uctgym/gymauth/pkg/errutil"
)

// Password reset messages.
const (
	MsgResetRequested = "If the email exists, a password reset link has been sent"
	MsgPasswordReset  = "Password reset successfully. Please login with your new password."
)

// PasswordResetRequest asks for a reset link.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset issues single-use reset tokens. The response is the
// same whether or not the account exists.
type RequestPasswordReset struct {
	deps Dependencies
}

// NewRequestPasswordReset requires Users, Tokens and Issuer. Mailer is optional.
func NewRequestPasswordReset(deps Dependencies) (*RequestPasswordReset, error) {
	deps, err := deps.prepare(needUsers | needTokens | needIssuer)
	if err != nil {
		return nil, err
	}
	return &RequestPasswordReset{deps: deps}, nil
}

// Execute generates and sends a reset token when the account exists and is active.
func (uc *RequestPasswordReset) Execute(ctx context.Context, in PasswordResetRequest) MessageResult {
	token, failure := run(ctx, uc.deps.Logger, OpRequestReset, func(ctx context.Context) (string, error) {
		return uc.request(ctx, in)
	})
	if failure != nil {
		return MessageResult{Error: failure.Message, Code: failure.Code}
	}
	result := MessageResult{Success: true, Message: MsgResetRequested}
	if uc.deps.ExposeResetToken {
		result.ResetToken = token
	}
	return result
}

func (uc *RequestPasswordReset) request(ctx context.Context, in PasswordResetRequest) (string, error) {
	if err := requireFields(field{in.Email, "Email is required and must be a string"}); err != nil {
		return "", err
	}

	email, err := uc.deps.Emails.Parse(in.Email)
	if err != nil {
		return "", err
	}

	user, err := uc.deps.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", storeError("find user by email", err)
	}
	if !user.IsActive() {
		return "", nil
	}

	token, err := uc.deps.Issuer.GenerateAccessToken(TokenClaims{
		UserID: user.ID(),
		Email:  user.Email().String(),
		Type:   TokenTypePasswordReset,
	}, uc.deps.Security.ResetTokenTTL)
	if err != nil {
		return "", oops.Code(codeTokenIssue).With("operation", "generate reset token").Wrap(err)
	}

	expiresAt := uc.deps.Clock.Now().Add(uc.deps.Security.ResetTokenTTL)
	if err := uc.deps.Tokens.SaveResetToken(ctx, user.ID(), token, expiresAt); err != nil {
		// Same answer as for an unknown email; the token is unusable, so no mail.
		errutil.LogErrorContext(ctx, uc.deps.Logger, "password reset token not stored",
			storeError("save reset token", err))
		return "", nil
	}

	if uc.deps.Mailer != nil {
		if err := uc.deps.Mailer.SendPasswordResetEmail(ctx, user.Email().String(), token); err != nil {
			// The response must not differ for existing accounts.
			uc.deps.Logger.ErrorContext(ctx, "password reset email failed",
				"user_id", user.ID(),
				"error", oops.Code(codeMailFailed).Wrap(err))
		}
	}

	uc.deps.Logger.InfoContext(ctx, "password reset requested", "user_id", user.ID())
	return token, nil
}

// ResetPasswordInput redeems a reset token.
type ResetPasswordInput struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword consumes a reset token and sets a new password.
type ResetPassword struct {
	deps Dependencies
}

// NewResetPassword requires Users, Tokens, Hasher and Issuer.
func NewResetPassword(deps Dependencies) (*ResetPassword, error) {
	deps, err := deps.prepare(needUsers | needTokens | needHasher | needIssuer)
	if err != nil {
		return nil, err
	}
	return &ResetPassword{deps: deps}, nil
}

// Execute sets the new password and revokes every session of the user.
func (uc *ResetPassword) Execute(ctx context.Context, in ResetPasswordInput) MessageResult {
	_, failure := run(ctx, uc.deps.Logger, OpResetPassword, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, uc.reset(ctx, in)
	})
	if failure != nil {
		return MessageResult{Error: failure.Message, Code: failure.Code}
	}
	return MessageResult{Success: true, Message: MsgPasswordReset}
}

func (uc *ResetPassword) reset(ctx context.Context, in ResetPasswordInput) error {
	if err := requireFields(
		field{in.ResetToken, "Reset token is required and must be a string"},
		field{in.NewPassword, "New password is required and must be a string"},
	); err != nil {
		return err
	}

	validation := PasswordPolicy{}.Validate(in.NewPassword)
	if !validation.IsValid {
		return oops.Code(CodeWeakPassword).
			With("violations", len(validation.Errors)).
			Errorf("Password validation failed: %s", strings.Join(validation.Errors, ", "))
	}

	claims, err := uc.deps.Issuer.VerifyAccessToken(in.ResetToken)
	if err != nil {
		uc.deps.Logger.DebugContext(ctx, "reset token rejected", "error", err)
		return oops.Code(CodeTokenInvalid).Errorf("Invalid or expired reset token")
	}
	if claims.Type != TokenTypePasswordReset {
		return oops.Code(CodeTokenType).With("user_id", claims.UserID).Errorf("Invalid token type")
	}

	record, err := uc.deps.Tokens.FindResetToken(ctx, in.ResetToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeTokenNotFound).With("user_id", claims.UserID).Errorf("Reset token not found or already used")
		}
		return storeError("find reset token", err)
	}
	if record.UserID != claims.UserID {
		return oops.Code(CodeTokenNotFound).With("user_id", claims.UserID).Errorf("Reset token not found or already used")
	}

	now := uc.deps.Clock.Now()
	if !now.Before(record.ExpiresAt) {
		if err := uc.deps.Tokens.RevokeResetToken(ctx, in.ResetToken); err != nil {
			return storeError("revoke expired reset token", err)
		}
		return oops.Code(CodeTokenExpired).With("user_id", claims.UserID).Errorf("Reset token expired")
	}

	user, err := uc.deps.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeUserNotFound).With("user_id", claims.UserID).Errorf("User not found")
		}
		return storeError("find user by id", err)
	}
	if !user.IsActive() {
		return oops.Code(CodeAccountDisabled).With("user_id", user.ID()).Errorf("Account is deactivated")
	}

	hash, err := uc.deps.Hasher.Hash(in.NewPassword)
	if err != nil {
		return oops.Code(codeHashFailed).With("operation", "hash password").Wrap(err)
	}
	hashed, err := NewHashedPassword(hash)
	if err != nil {
		return oops.Code(codeHashFailed).Errorf("hasher returned an empty hash")
	}
	if err := user.ChangePassword(hashed); err != nil {
		return err
	}
	user.ResetLoginAttempts()

	if err := uc.deps.Users.Update(ctx, user); err != nil {
		return storeError("update user password", err)
	}
	if err := uc.deps.Tokens.RevokeResetToken(ctx, in.ResetToken); err != nil {
		return storeError("consume reset token", err)
	}
	if err := uc.deps.Tokens.RevokeAllUserTokens(ctx, user.ID()); err != nil {
		return storeError("revoke sessions after reset", err)
	}

	uc.deps.Logger.InfoContext(ctx, "password reset completed", "user_id", user.ID())
	return nil
}
