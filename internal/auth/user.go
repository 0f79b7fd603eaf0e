// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Name validation constraints.
const (
	MinNameLength = 2
	MaxNameLength = 100
)

// User is the account aggregate. Fields are reachable only through methods
// so lockout and password invariants cannot be bypassed.
type User struct {
	id            string
	email         Email
	password      HashedPassword
	name          string
	role          Role
	active        bool
	createdAt     time.Time
	lastLoginAt   *time.Time
	loginAttempts int
	lockedUntil   *time.Time
}

// UserParams are the inputs for NewUser. An empty Role means DefaultRole.
type UserParams struct {
	Email     Email
	Password  HashedPassword
	Name      string
	Role      Role
	CreatedAt time.Time
}

// UserRecord is the persisted form of a User.
type UserRecord struct {
	ID            string
	Email         string
	PasswordHash  string
	Name          string
	Role          Role
	IsActive      bool
	CreatedAt     time.Time
	LastLoginAt   *time.Time
	LoginAttempts int
	LockedUntil   *time.Time
}

// NewUser creates an active user with no login history.
func NewUser(p UserParams) (*User, error) {
	name, err := validateName(p.Name)
	if err != nil {
		return nil, err
	}
	role := p.Role
	if role == "" {
		role = DefaultRole
	}
	if !role.Valid() {
		return nil, invalidRoleError(string(role))
	}
	if p.Email.IsZero() {
		return nil, oops.Code(CodeEmailRequired).Errorf("El email es requerido")
	}
	if p.Password.IsZero() {
		return nil, oops.Code(CodeHashRequired).Errorf("La contraseña hasheada es requerida")
	}
	return &User{
		email:     p.Email,
		password:  p.Password,
		name:      name,
		role:      role,
		active:    true,
		createdAt: p.CreatedAt,
	}, nil
}

// RestoreUser rebuilds a User from storage, enforcing the same invariants
// as NewUser.
func RestoreUser(rec UserRecord) (*User, error) {
	email, err := restoreEmail(rec.Email)
	if err != nil {
		return nil, oops.With("user_id", rec.ID).Wrap(err)
	}
	password, err := NewHashedPassword(rec.PasswordHash)
	if err != nil {
		return nil, oops.With("user_id", rec.ID).Wrap(err)
	}
	u, err := NewUser(UserParams{
		Email:     email,
		Password:  password,
		Name:      rec.Name,
		Role:      rec.Role,
		CreatedAt: rec.CreatedAt,
	})
	if err != nil {
		return nil, oops.With("user_id", rec.ID).Wrap(err)
	}
	if rec.LoginAttempts < 0 {
		return nil, oops.Code("USER_INVALID_ATTEMPTS").
			With("user_id", rec.ID).
			Errorf("login attempts cannot be negative")
	}
	u.id = rec.ID
	u.active = rec.IsActive
	u.lastLoginAt = copyTime(rec.LastLoginAt)
	u.loginAttempts = rec.LoginAttempts
	u.lockedUntil = copyTime(rec.LockedUntil)
	return u, nil
}

// Record exports the user's state for persistence.
func (u *User) Record() UserRecord {
	return UserRecord{
		ID:            u.id,
		Email:         u.email.String(),
		PasswordHash:  u.password.Value(),
		Name:          u.name,
		Role:          u.role,
		IsActive:      u.active,
		CreatedAt:     u.createdAt,
		LastLoginAt:   copyTime(u.lastLoginAt),
		LoginAttempts: u.loginAttempts,
		LockedUntil:   copyTime(u.lockedUntil),
	}
}

// ID returns the identifier assigned by the repository, or "" before Save.
func (u *User) ID() string { return u.id }

// Email returns the normalized email.
func (u *User) Email() Email { return u.email }

// Password returns the hashed password.
func (u *User) Password() HashedPassword { return u.password }

// Name returns the trimmed display name.
func (u *User) Name() string { return u.name }

// Role returns the user's role.
func (u *User) Role() Role { return u.role }

// IsActive reports whether the account may log in.
func (u *User) IsActive() bool { return u.active }

// CreatedAt returns the registration time.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// LastLoginAt returns the last successful login, or nil.
func (u *User) LastLoginAt() *time.Time { return copyTime(u.lastLoginAt) }

// LoginAttempts returns the failed attempts since the last successful login.
func (u *User) LoginAttempts() int { return u.loginAttempts }

// LockedUntil returns the lockout expiry, or nil.
func (u *User) LockedUntil() *time.Time { return copyTime(u.lockedUntil) }

// IncrementLoginAttempts records a failed password check.
func (u *User) IncrementLoginAttempts() {
	u.loginAttempts++
}

// ResetLoginAttempts clears the failure counter and any lockout.
func (u *User) ResetLoginAttempts() {
	u.loginAttempts = 0
	u.lockedUntil = nil
}

// LockAccount blocks logins until now+d.
func (u *User) LockAccount(now time.Time, d time.Duration) {
	until := now.Add(d)
	u.lockedUntil = &until
}

// IsAccountLocked reports whether a lockout is in force at now.
func (u *User) IsAccountLocked(now time.Time) bool {
	return u.lockedUntil != nil && now.Before(*u.lockedUntil)
}

// LockRemaining returns how long the lockout lasts past now, or zero.
func (u *User) LockRemaining(now time.Time) time.Duration {
	if !u.IsAccountLocked(now) {
		return 0
	}
	return u.lockedUntil.Sub(now)
}

// ShouldLockAccount reports whether attempts reached maxAttempts.
func (u *User) ShouldLockAccount(maxAttempts int) bool {
	return u.loginAttempts >= maxAttempts
}

// Activate re-enables the account and clears any lockout.
func (u *User) Activate() {
	u.active = true
	u.ResetLoginAttempts()
}

// Deactivate disables the account. Lockout state is kept.
func (u *User) Deactivate() {
	u.active = false
}

// UpdateLastLogin records a successful login at t.
func (u *User) UpdateLastLogin(t time.Time) {
	u.lastLoginAt = &t
	u.ResetLoginAttempts()
}

// ChangePassword replaces the password hash.
func (u *User) ChangePassword(password HashedPassword) error {
	if password.IsZero() {
		return oops.Code(CodePasswordType).
			With("user_id", u.id).
			Errorf("La contraseña debe ser una instancia de HashedPassword")
	}
	u.password = password
	return nil
}

// UpdateProfile changes the name and/or email. Nil arguments are left as is.
// Nothing changes if validation fails.
func (u *User) UpdateProfile(name *string, email *Email) error {
	newName := u.name
	if name != nil {
		validated, err := validateName(*name)
		if err != nil {
			return err
		}
		newName = validated
	}
	if email != nil && email.IsZero() {
		return oops.Code(CodeEmailRequired).Errorf("El email es requerido")
	}
	u.name = newName
	if email != nil {
		u.email = *email
	}
	return nil
}

// Equals compares users by identifier. Unsaved users are never equal.
func (u *User) Equals(other *User) bool {
	if u == nil || other == nil || u.id == "" {
		return false
	}
	return u.id == other.id
}

// LogValue implements slog.LogValuer with non-sensitive fields only.
func (u *User) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", u.id),
		slog.String("email", u.email.String()),
		slog.String("role", string(u.role)),
		slog.Bool("active", u.active),
	)
}

func validateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", oops.Code(CodeNameRequired).Errorf("El nombre es requerido y debe ser una cadena de texto no vacía")
	}
	n := utf8.RuneCountInString(trimmed)
	if n < MinNameLength {
		return "", oops.Code(CodeNameTooShort).
			With("min", MinNameLength).
			Errorf("El nombre debe tener al menos %d caracteres", MinNameLength)
	}
	if n > MaxNameLength {
		return "", oops.Code(CodeNameTooLong).
			With("max", MaxNameLength).
			Errorf("El nombre es demasiado largo")
	}
	return trimmed, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// UserRepository manages user persistence.
type UserRepository interface {
	// FindByEmail retrieves a user by normalized email.
	// Returns ErrNotFound if no user has the given email.
	FindByEmail(ctx context.Context, email Email) (*User, error)

	// FindByID retrieves a user by identifier.
	// Returns ErrNotFound if the user does not exist.
	FindByID(ctx context.Context, id string) (*User, error)

	// Save stores a new user and returns it with its assigned identifier.
	// Returns an error with CodeEmailTaken if the email is already registered.
	Save(ctx context.Context, user *User) (*User, error)

	// Update persists changes to an existing user.
	// Returns ErrNotFound if the user does not exist.
	Update(ctx context.Context, user *User) error
}
