// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/samber/oops"
)

const msgInvalidCredentials = "Credenciales inválidas"

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// AuthenticateInput is a login request.
type AuthenticateInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthenticateUser verifies credentials and opens a session.
type AuthenticateUser struct {
	deps Dependencies
}

// NewAuthenticateUser requires Users, Tokens, Hasher and Issuer.
func NewAuthenticateUser(deps Dependencies) (*AuthenticateUser, error) {
	deps, err := deps.prepare(needUsers | needTokens | needHasher | needIssuer)
	if err != nil {
		return nil, err
	}
	return &AuthenticateUser{deps: deps}, nil
}

type session struct {
	tokens *TokenPair
	user   *UserView
}

// Execute authenticates the user and issues an access/refresh token pair.
func (uc *AuthenticateUser) Execute(ctx context.Context, in AuthenticateInput) AuthResult {
	s, failure := run(ctx, uc.deps.Logger, OpAuthenticate, func(ctx context.Context) (*session, error) {
		return uc.authenticate(ctx, in)
	})
	if failure != nil {
		return AuthResult{Error: failure.Message, Code: failure.Code}
	}
	return AuthResult{Success: true, Tokens: s.tokens, User: s.user}
}

func (uc *AuthenticateUser) authenticate(ctx context.Context, in AuthenticateInput) (*session, error) {
	if err := requireFields(
		field{in.Email, "El email es requerido y debe ser una cadena de texto"},
		field{in.Password, "La contraseña es requerida y debe ser una cadena de texto"},
	); err != nil {
		return nil, err
	}

	email, err := uc.deps.Emails.Parse(in.Email)
	if err != nil {
		return nil, err
	}

	user, err := uc.deps.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Still verify so the response time matches an existing account.
			_, _ = uc.deps.Hasher.Verify(in.Password, dummyPasswordHash) //nolint:errcheck // result is discarded
			return nil, oops.Code(CodeInvalidCredentials).Errorf(msgInvalidCredentials)
		}
		return nil, storeError("find user by email", err)
	}

	if !user.IsActive() {
		return nil, oops.Code(CodeAccountDisabled).With("user_id", user.ID()).Errorf("La cuenta está desactivada")
	}

	now := uc.deps.Clock.Now()
	if user.IsAccountLocked(now) {
		return nil, lockedError(user, now)
	}

	valid, err := uc.deps.Hasher.Verify(in.Password, user.Password().Value())
	if err != nil {
		return nil, oops.Code(codeHashFailed).
			With("operation", "verify password").
			With("user_id", user.ID()).
			Wrap(err)
	}
	if !valid {
		return nil, uc.recordFailure(ctx, user, now)
	}

	user.UpdateLastLogin(now)
	if uc.deps.Hasher.NeedsUpgrade(user.Password().Value()) {
		uc.upgradeHash(ctx, user, in.Password)
	}
	if err := uc.deps.Users.Update(ctx, user); err != nil {
		return nil, storeError("update user after login", err)
	}

	tokens, err := issueTokens(ctx, uc.deps, user, now)
	if err != nil {
		return nil, err
	}

	uc.deps.Logger.InfoContext(ctx, "user authenticated", "user_id", user.ID())
	return &session{tokens: tokens, user: viewOf(user)}, nil
}

// recordFailure counts a wrong password, locking the account once the
// threshold is reached. Attempts keep accumulating across lockouts so
// repeated lockouts escalate.
func (uc *AuthenticateUser) recordFailure(ctx context.Context, user *User, now time.Time) error {
	user.IncrementLoginAttempts()
	if user.ShouldLockAccount(uc.deps.Security.MaxLoginAttempts) {
		duration := uc.deps.Security.LockoutDurationFor(user.LoginAttempts())
		user.LockAccount(now, duration)
		RecordLockout()
		uc.deps.Logger.WarnContext(ctx, "account locked",
			"user_id", user.ID(),
			"attempts", user.LoginAttempts(),
			"duration", duration)
	} else {
		uc.deps.Logger.InfoContext(ctx, "login failed",
			"user_id", user.ID(),
			"attempts", user.LoginAttempts())
	}

	if err := uc.deps.Users.Update(ctx, user); err != nil {
		return storeError("record failed login", err)
	}
	return oops.Code(CodeInvalidCredentials).With("user_id", user.ID()).Errorf(msgInvalidCredentials)
}

// upgradeHash replaces a legacy hash. Failures keep the old hash.
func (uc *AuthenticateUser) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := uc.deps.Hasher.Hash(password)
	if err != nil {
		uc.deps.Logger.WarnContext(ctx, "password hash upgrade failed", "user_id", user.ID(), "error", err)
		return
	}
	hashed, err := NewHashedPassword(hash)
	if err != nil {
		return
	}
	if err := user.ChangePassword(hashed); err == nil {
		uc.deps.Logger.InfoContext(ctx, "password hash upgraded", "user_id", user.ID())
	}
}

func lockedError(user *User, now time.Time) error {
	minutes := int(math.Ceil(user.LockRemaining(now).Minutes()))
	return oops.Code(CodeAccountLocked).
		With("user_id", user.ID()).
		With("locked_until", user.LockedUntil()).
		Errorf("La cuenta está bloqueada. Intenta de nuevo en %d minutos", minutes)
}

// issueTokens signs an access token for user and stores a fresh refresh token.
func issueTokens(ctx context.Context, deps Dependencies, user *User, now time.Time) (*TokenPair, error) {
	access, err := deps.Issuer.GenerateAccessToken(TokenClaims{
		UserID: user.ID(),
		Email:  user.Email().String(),
		Role:   user.Role(),
	}, deps.Security.AccessTokenTTL)
	if err != nil {
		return nil, oops.Code(codeTokenIssue).With("operation", "generate access token").Wrap(err)
	}

	refresh, err := deps.Issuer.GenerateRefreshToken()
	if err != nil {
		return nil, oops.Code(codeTokenIssue).With("operation", "generate refresh token").Wrap(err)
	}

	if err := deps.Tokens.SaveRefreshToken(ctx, user.ID(), refresh, deps.Security.RefreshTokenExpiration(now)); err != nil {
		return nil, storeError("save refresh token", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(deps.Security.AccessTokenTTL / time.Second),
	}, nil
}
