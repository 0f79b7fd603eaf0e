// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"time"

	"github.com/samber/oops"
)

// Lockout and token lifetime defaults.
const (
	// MaxLoginAttempts is the number of failures that triggers a lockout.
	MaxLoginAttempts = 5

	// LockoutDuration is the base lockout period, escalated by repeated failures.
	LockoutDuration = 15 * time.Minute

	// MaxLockoutMultiplier caps the escalation at 6x the base period.
	MaxLockoutMultiplier = 5

	// AccessTokenTTL is the lifetime of signed access tokens.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the lifetime of opaque refresh tokens.
	RefreshTokenTTL = 7 * 24 * time.Hour

	// ResetTokenTTL is the lifetime of password reset tokens.
	ResetTokenTTL = time.Hour
)

// SecurityPolicy holds lockout thresholds and token lifetimes.
type SecurityPolicy struct {
	MaxLoginAttempts     int
	LockoutDuration      time.Duration
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	ResetTokenTTL        time.Duration
	RequireTokenRotation bool
}

// DefaultSecurityPolicy returns the production policy.
func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		MaxLoginAttempts:     MaxLoginAttempts,
		LockoutDuration:      LockoutDuration,
		AccessTokenTTL:       AccessTokenTTL,
		RefreshTokenTTL:      RefreshTokenTTL,
		ResetTokenTTL:        ResetTokenTTL,
		RequireTokenRotation: true,
	}
}

// Validate rejects non-positive thresholds and durations.
func (p SecurityPolicy) Validate() error {
	switch {
	case p.MaxLoginAttempts <= 0:
		return oops.Code("SECURITY_POLICY_INVALID").With("max_login_attempts", p.MaxLoginAttempts).
			Errorf("max login attempts must be positive")
	case p.LockoutDuration <= 0, p.AccessTokenTTL <= 0, p.RefreshTokenTTL <= 0, p.ResetTokenTTL <= 0:
		return oops.Code("SECURITY_POLICY_INVALID").Errorf("lockout duration and token TTLs must be positive")
	}
	return nil
}

// ShouldLockAccount reports whether attempts has reached the threshold.
func (p SecurityPolicy) ShouldLockAccount(attempts int) bool {
	return attempts >= p.MaxLoginAttempts
}

// LockoutDurationFor escalates the base period every MaxLoginAttempts
// failures, up to (MaxLockoutMultiplier+1) times the base.
func (p SecurityPolicy) LockoutDurationFor(attempts int) time.Duration {
	multiplier := min(attempts/p.MaxLoginAttempts, MaxLockoutMultiplier) + 1
	return p.LockoutDuration * time.Duration(multiplier)
}

// RefreshTokenExpiration returns the expiry of a refresh token issued at issuedAt.
func (p SecurityPolicy) RefreshTokenExpiration(issuedAt time.Time) time.Time {
	return issuedAt.Add(p.RefreshTokenTTL)
}

// IsRefreshTokenExpired reports whether now is at or past expiresAt.
func (p SecurityPolicy) IsRefreshTokenExpired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}

// IsLockoutExpired reports whether a lockout no longer applies at now.
// A nil lockedUntil means the account was never locked.
func (p SecurityPolicy) IsLockoutExpired(lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil == nil || !now.Before(*lockedUntil)
}
