// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import "time"

// UserView is the public projection of a User.
type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// RegisteredUser is returned after registration.
type RegisteredUser struct {
	UserView
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenPair is issued on login and refresh. ExpiresIn is the access token
// lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// RegisterResult is returned by RegisterUser.
type RegisterResult struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	User    *RegisteredUser `json:"user,omitempty"`
}

// AuthResult is returned by AuthenticateUser and RefreshSession.
type AuthResult struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Code    string     `json:"code,omitempty"`
	Tokens  *TokenPair `json:"tokens,omitempty"`
	User    *UserView  `json:"user,omitempty"`
}

// MessageResult is returned by Logout and the password reset use cases.
type MessageResult struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	ResetToken string `json:"resetToken,omitempty"`
}

// AuthorizeResult is returned by Authorize.
type AuthorizeResult struct {
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	Code    string    `json:"code,omitempty"`
	User    *UserView `json:"user,omitempty"`
}

// StatusResult is returned by SetUserStatus.
type StatusResult struct {
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	Code    string    `json:"code,omitempty"`
	User    *UserView `json:"user,omitempty"`
	Active  bool      `json:"isActive"`
}

func viewOf(u *User) *UserView {
	return &UserView{
		ID:    u.ID(),
		Email: u.Email().String(),
		Name:  u.Name(),
		Role:  u.Role(),
	}
}
