// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/internal/store"
)

const userColumns = `id, email, password_hash, name, role, is_active,
	created_at, last_login_at, login_attempts, locked_until`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db    store.DB
	newID func() string
}

// NewUserRepository creates a UserRepository. New users get ULID identifiers.
func NewUserRepository(db store.DB) *UserRepository {
	return &UserRepository{
		db:    db,
		newID: func() string { return ulid.Make().String() },
	}
}

// FindByEmail implements auth.UserRepository.
func (r *UserRepository) FindByEmail(ctx context.Context, email auth.Email) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("email", email.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			With("email", email.String()).
			Wrap(err)
	}
	return user, nil
}

// FindByID implements auth.UserRepository.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("user_id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("user_id", id).
			Wrap(err)
	}
	return user, nil
}

// Save implements auth.UserRepository.
func (r *UserRepository) Save(ctx context.Context, user *auth.User) (*auth.User, error) {
	rec := user.Record()
	rec.ID = r.newID()

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID,
		rec.Email,
		rec.PasswordHash,
		rec.Name,
		string(rec.Role),
		rec.IsActive,
		rec.CreatedAt,
		rec.LastLoginAt,
		rec.LoginAttempts,
		rec.LockedUntil,
	)
	if isUniqueViolation(err) {
		return nil, oops.With("email", rec.Email).Wrap(auth.ErrEmailTaken)
	}
	if err != nil {
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", rec.Email).
			Wrap(err)
	}
	return decodeUser(rec)
}

// Update implements auth.UserRepository.
func (r *UserRepository) Update(ctx context.Context, user *auth.User) error {
	rec := user.Record()

	result, err := r.db.Exec(ctx, `
		UPDATE users SET
			email = $2,
			password_hash = $3,
			name = $4,
			role = $5,
			is_active = $6,
			last_login_at = $7,
			login_attempts = $8,
			locked_until = $9
		WHERE id = $1
	`,
		rec.ID,
		rec.Email,
		rec.PasswordHash,
		rec.Name,
		string(rec.Role),
		rec.IsActive,
		rec.LastLoginAt,
		rec.LoginAttempts,
		rec.LockedUntil,
	)
	if isUniqueViolation(err) {
		return oops.With("user_id", rec.ID).With("email", rec.Email).Wrap(auth.ErrEmailTaken)
	}
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("user_id", rec.ID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("user_id", rec.ID).Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		rec  auth.UserRecord
		role string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.PasswordHash,
		&rec.Name,
		&role,
		&rec.IsActive,
		&rec.CreatedAt,
		&rec.LastLoginAt,
		&rec.LoginAttempts,
		&rec.LockedUntil,
	); err != nil {
		return nil, err
	}
	rec.Role = auth.Role(role)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.LastLoginAt = utcPtr(rec.LastLoginAt)
	rec.LockedUntil = utcPtr(rec.LockedUntil)
	return decodeUser(rec)
}

// decodeUser rebuilds a user from a row. Invalid rows are reported with a
// storage code so the domain validation code inside is not mistaken for
// a client error.
func decodeUser(rec auth.UserRecord) (*auth.User, error) {
	u, err := auth.RestoreUser(rec)
	if err != nil {
		return nil, oops.Code("USER_DECODE_FAILED").With("user_id", rec.ID).Errorf("decode user: %s", err)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ auth.UserRepository = (*UserRepository)(nil)
