// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package authtest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uctgym/gymauth/internal/auth"
)

// Fixture values that satisfy every validation rule.
const (
	ValidEmail    = "ana.perez@alu.uct.cl"
	ValidPassword = "Gimnasio#2026"
	ValidName     = "Ana Pérez"
)

// PlainHasher is a fast PasswordHasher for tests. Hashes are "plain:" + password.
// Hashes with the "legacy:" prefix verify the same way but report NeedsUpgrade.
type PlainHasher struct{}

const (
	plainPrefix  = "plain:"
	legacyPrefix = "legacy:"
)

// Hash implements auth.PasswordHasher.
func (PlainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return plainPrefix + password, nil
}

// Verify implements auth.PasswordHasher.
func (PlainHasher) Verify(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, plainPrefix):
		return hash == plainPrefix+password, nil
	case strings.HasPrefix(hash, legacyPrefix):
		return hash == legacyPrefix+password, nil
	default:
		return false, nil
	}
}

// NeedsUpgrade implements auth.PasswordHasher.
func (PlainHasher) NeedsUpgrade(hash string) bool {
	return !strings.HasPrefix(hash, plainPrefix)
}

// LegacyHash returns a hash PlainHasher accepts but wants to upgrade.
func LegacyHash(password string) string {
	return legacyPrefix + password
}

// UserOption adjusts a fixture record.
type UserOption func(*auth.UserRecord)

// WithID sets the user identifier.
func WithID(id string) UserOption {
	return func(r *auth.UserRecord) { r.ID = id }
}

// WithEmail sets the email.
func WithEmail(email string) UserOption {
	return func(r *auth.UserRecord) { r.Email = email }
}

// WithPasswordHash sets the stored hash.
func WithPasswordHash(hash string) UserOption {
	return func(r *auth.UserRecord) { r.PasswordHash = hash }
}

// WithRole sets the role.
func WithRole(role auth.Role) UserOption {
	return func(r *auth.UserRecord) { r.Role = role }
}

// Inactive marks the user deactivated.
func Inactive() UserOption {
	return func(r *auth.UserRecord) { r.IsActive = false }
}

// WithLoginAttempts sets the failed attempt counter.
func WithLoginAttempts(n int) UserOption {
	return func(r *auth.UserRecord) { r.LoginAttempts = n }
}

// LockedFor locks the user for d past Epoch.
func LockedFor(d time.Duration) UserOption {
	return func(r *auth.UserRecord) {
		until := Epoch.Add(d)
		r.LockedUntil = &until
	}
}

// NewUser builds a persisted-looking user with ID "user-1" and a PlainHasher
// hash of ValidPassword.
func NewUser(t testing.TB, opts ...UserOption) *auth.User {
	t.Helper()
	rec := auth.UserRecord{
		ID:           "user-1",
		Email:        ValidEmail,
		PasswordHash: plainPrefix + ValidPassword,
		Name:         ValidName,
		Role:         auth.RoleAlumno,
		IsActive:     true,
		CreatedAt:    Epoch.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&rec)
	}
	u, err := auth.RestoreUser(rec)
	require.NoError(t, err)
	return u
}

// MustEmail parses raw with the default policy.
func MustEmail(t testing.TB, raw string) auth.Email {
	t.Helper()
	e, err := auth.ParseEmail(raw)
	require.NoError(t, err)
	return e
}

var _ auth.PasswordHasher = PlainHasher{}
