// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Refresh token configuration.
const (
	RefreshTokenBytes  = 64 // random bytes per refresh token
	RefreshTokenLength = 86 // base64url without padding
)

// TokenTypePasswordReset marks signed tokens that authorize a password reset.
const TokenTypePasswordReset = "password-reset"

// TokenClaims is the payload of a signed token. Type is empty for access tokens.
type TokenClaims struct {
	UserID string
	Email  string
	Role   Role
	Type   string
}

// TokenService issues and verifies tokens.
type TokenService interface {
	// GenerateAccessToken signs claims valid for ttl.
	GenerateAccessToken(claims TokenClaims, ttl time.Duration) (string, error)

	// GenerateRefreshToken returns a new opaque refresh token.
	GenerateRefreshToken() (string, error)

	// VerifyAccessToken checks signature and expiry and returns the claims.
	VerifyAccessToken(token string) (*TokenClaims, error)

	// VerifyRefreshToken checks the token format only.
	VerifyRefreshToken(token string) bool
}

// TokenRecord is a stored refresh or reset token.
type TokenRecord struct {
	UserID    string
	ExpiresAt time.Time
}

// TokenRepository persists refresh and password reset tokens.
// Lookups take the plaintext token; implementations may store a hash.
type TokenRepository interface {
	// SaveRefreshToken stores a refresh token for userID.
	SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error

	// FindRefreshToken returns the record for token.
	// Returns ErrNotFound if the token was never stored or has been revoked.
	FindRefreshToken(ctx context.Context, token string) (*TokenRecord, error)

	// RevokeRefreshToken removes a refresh token. Unknown tokens are ignored.
	RevokeRefreshToken(ctx context.Context, token string) error

	// RevokeAllUserTokens removes every refresh and reset token of userID.
	RevokeAllUserTokens(ctx context.Context, userID string) error

	// SaveResetToken stores a password reset token for userID.
	SaveResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error

	// FindResetToken returns the record for token.
	// Returns ErrNotFound if the token was never stored or has been consumed.
	FindResetToken(ctx context.Context, token string) (*TokenRecord, error)

	// RevokeResetToken removes a reset token. Unknown tokens are ignored.
	RevokeResetToken(ctx context.Context, token string) error

	// CleanExpiredTokens removes tokens of both kinds with expiry at or
	// before now and returns how many were removed.
	CleanExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// GenerateRefreshToken creates a random base64url token of RefreshTokenLength characters.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code(codeRandomFailed).
			With("operation", "crypto/rand.Read").
			With("requested_bytes", RefreshTokenBytes).
			Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// IsRefreshTokenFormat reports whether token looks like a refresh token.
func IsRefreshTokenFormat(token string) bool {
	if len(token) != RefreshTokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// HashToken computes the SHA256 hash of a token for storage.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyTokenHash checks token against a stored hash in constant time.
func VerifyTokenHash(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(hash)) == 1
}
