// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// SetUserStatusInput activates or deactivates an account, identified by
// UserID or, when that is empty, by Email.
type SetUserStatusInput struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	Active bool   `json:"active"`
}

// SetUserStatus is the administrative activate/deactivate action.
type SetUserStatus struct {
	deps Dependencies
}

// NewSetUserStatus requires Users and Tokens.
func NewSetUserStatus(deps Dependencies) (*SetUserStatus, error) {
	deps, err := deps.prepare(needUsers | needTokens)
	if err != nil {
		return nil, err
	}
	return &SetUserStatus{deps: deps}, nil
}

// Execute applies the status. Activation clears lockout state; deactivation
// revokes every token of the user.
func (uc *SetUserStatus) Execute(ctx context.Context, in SetUserStatusInput) StatusResult {
	view, failure := run(ctx, uc.deps.Logger, OpSetStatus, func(ctx context.Context) (*UserView, error) {
		return uc.apply(ctx, in)
	})
	if failure != nil {
		return StatusResult{Error: failure.Message, Code: failure.Code}
	}
	return StatusResult{Success: true, User: view, Active: in.Active}
}

func (uc *SetUserStatus) apply(ctx context.Context, in SetUserStatusInput) (*UserView, error) {
	user, err := uc.find(ctx, in)
	if err != nil {
		return nil, err
	}

	if in.Active {
		user.Activate()
	} else {
		user.Deactivate()
	}
	if err := uc.deps.Users.Update(ctx, user); err != nil {
		return nil, storeError("update user status", err)
	}
	if !in.Active {
		if err := uc.deps.Tokens.RevokeAllUserTokens(ctx, user.ID()); err != nil {
			return nil, storeError("revoke tokens of deactivated user", err)
		}
	}

	uc.deps.Logger.InfoContext(ctx, "user status changed", "user_id", user.ID(), "active", in.Active)
	return viewOf(user), nil
}

func (uc *SetUserStatus) find(ctx context.Context, in SetUserStatusInput) (*User, error) {
	var (
		user *User
		err  error
	)
	switch {
	case in.UserID != "":
		user, err = uc.deps.Users.FindByID(ctx, in.UserID)
	case in.Email != "":
		var email Email
		if email, err = restoreEmail(in.Email); err != nil {
			return nil, err
		}
		user, err = uc.deps.Users.FindByEmail(ctx, email)
	default:
		return nil, oops.Code(CodeMissingField).Errorf("User ID or email is required")
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).Errorf("User not found")
		}
		return nil, storeError("find user", err)
	}
	return user, nil
}
