// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// AuthorizeInput checks an access token against a minimum role.
// An empty MinRole accepts any authenticated user.
type AuthorizeInput struct {
	AccessToken string `json:"accessToken"`
	MinRole     Role   `json:"minRole,omitempty"`
}

// Authorize resolves the user behind an access token.
type Authorize struct {
	deps Dependencies
}

// NewAuthorize requires Users and Issuer.
func NewAuthorize(deps Dependencies) (*Authorize, error) {
	deps, err := deps.prepare(needUsers | needIssuer)
	if err != nil {
		return nil, err
	}
	return &Authorize{deps: deps}, nil
}

// Execute verifies the token, loads the current user and enforces MinRole
// against the stored role rather than the one embedded in the token.
func (uc *Authorize) Execute(ctx context.Context, in AuthorizeInput) AuthorizeResult {
	view, failure := run(ctx, uc.deps.Logger, OpAuthorize, func(ctx context.Context) (*UserView, error) {
		return uc.authorize(ctx, in)
	})
	if failure != nil {
		return AuthorizeResult{Error: failure.Message, Code: failure.Code}
	}
	return AuthorizeResult{Success: true, User: view}
}

func (uc *Authorize) authorize(ctx context.Context, in AuthorizeInput) (*UserView, error) {
	if err := requireFields(field{in.AccessToken, "Access token is required and must be a string"}); err != nil {
		return nil, err
	}
	if in.MinRole != "" && !in.MinRole.Valid() {
		return nil, invalidRoleError(string(in.MinRole))
	}

	claims, err := uc.deps.Issuer.VerifyAccessToken(in.AccessToken)
	if err != nil {
		return nil, oops.Code(CodeTokenInvalid).Errorf("Invalid or expired access token")
	}
	if claims.Type != "" {
		return nil, oops.Code(CodeTokenType).With("type", claims.Type).Errorf("Invalid token type")
	}

	user, err := uc.deps.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).With("user_id", claims.UserID).Errorf("User not found")
		}
		return nil, storeError("find user by id", err)
	}
	if !user.IsActive() {
		return nil, oops.Code(CodeAccountDisabled).With("user_id", user.ID()).Errorf("Account is deactivated")
	}
	if in.MinRole != "" && !user.Role().AtLeast(in.MinRole) {
		return nil, oops.Code(CodeForbidden).
			With("user_id", user.ID()).
			With("role", user.Role()).
			With("required", in.MinRole).
			Errorf("Insufficient permissions")
	}
	return viewOf(user), nil
}
