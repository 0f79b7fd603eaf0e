// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Default JWT registered claims.
const (
	DefaultIssuer   = "gym-uct"
	DefaultAudience = "gym-uct-users"
)

// jwtClaims is the wire form of TokenClaims.
type jwtClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"type,omitempty"`
}

// JWTTokenService signs HS256 access and reset tokens and issues opaque
// refresh tokens.
type JWTTokenService struct {
	secret   []byte
	issuer   string
	audience string
	clock    Clock
}

// JWTOption configures a JWTTokenService.
type JWTOption func(*JWTTokenService)

// WithIssuer overrides DefaultIssuer.
func WithIssuer(issuer string) JWTOption {
	return func(s *JWTTokenService) { s.issuer = issuer }
}

// WithAudience overrides DefaultAudience.
func WithAudience(audience string) JWTOption {
	return func(s *JWTTokenService) { s.audience = audience }
}

// WithClock sets the clock used for issue and expiry times.
func WithClock(clock Clock) JWTOption {
	return func(s *JWTTokenService) { s.clock = clock }
}

// NewJWTTokenService creates a token service signing with secret.
func NewJWTTokenService(secret []byte, opts ...JWTOption) (*JWTTokenService, error) {
	if len(secret) == 0 {
		return nil, oops.Code("JWT_SECRET_REQUIRED").Errorf("jwt secret is required")
	}
	s := &JWTTokenService{
		secret:   append([]byte(nil), secret...),
		issuer:   DefaultIssuer,
		audience: DefaultAudience,
		clock:    SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		return nil, oops.Code("JWT_CLOCK_REQUIRED").Errorf("clock is required")
	}
	return s, nil
}

// GenerateAccessToken signs claims valid for ttl from the current clock time.
func (s *JWTTokenService) GenerateAccessToken(claims TokenClaims, ttl time.Duration) (string, error) {
	if claims.UserID == "" {
		return "", oops.Code(codeTokenIssue).Errorf("token subject cannot be empty")
	}
	if ttl <= 0 {
		return "", oops.Code(codeTokenIssue).With("ttl", ttl).Errorf("token ttl must be positive")
	}

	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   claims.UserID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   string(claims.Role),
		Type:   claims.Type,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", oops.Code(codeTokenIssue).With("user_id", claims.UserID).Wrap(err)
	}
	return signed, nil
}

// GenerateRefreshToken returns a new opaque refresh token.
func (s *JWTTokenService) GenerateRefreshToken() (string, error) {
	return GenerateRefreshToken()
}

// VerifyAccessToken validates signature, issuer, audience and expiry.
func (s *JWTTokenService) VerifyAccessToken(token string) (*TokenClaims, error) {
	if token == "" {
		return nil, oops.Code(CodeTokenInvalid).Errorf("token cannot be empty")
	}

	var claims jwtClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(CodeTokenExpired).Wrap(err)
		}
		return nil, oops.Code(CodeTokenInvalid).Wrap(err)
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, oops.Code(CodeTokenInvalid).Errorf("token subject mismatch")
	}

	return &TokenClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   Role(claims.Role),
		Type:   claims.Type,
	}, nil
}

// VerifyRefreshToken checks the refresh token format.
func (s *JWTTokenService) VerifyRefreshToken(token string) bool {
	return IsRefreshTokenFormat(token)
}
