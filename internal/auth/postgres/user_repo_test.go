// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/internal/auth/authtest"
	"github.com/uctgym/gymauth/pkg/errutil"
)

var userRowColumns = []string{
	"id", "email", "password_hash", "name", "role", "is_active",
	"created_at", "last_login_at", "login_attempts", "locked_until",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func userRow(id, email, role string, attempts int, lockedUntil *time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(userRowColumns).AddRow(
		id, email, "plain:"+authtest.ValidPassword, authtest.ValidName, role, true,
		authtest.Epoch, (*time.Time)(nil), attempts, lockedUntil,
	)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	ctx := context.Background()
	email := authtest.MustEmail(t, authtest.ValidEmail)

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		locked := authtest.Epoch.Add(30 * time.Minute)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs(authtest.ValidEmail).
			WillReturnRows(userRow("01J0USER", authtest.ValidEmail, "staff", 5, &locked))

		user, err := NewUserRepository(mock).FindByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, "01J0USER", user.ID())
		assert.Equal(t, auth.RoleStaff, user.Role())
		assert.Equal(t, 5, user.LoginAttempts())
		assert.True(t, user.IsAccountLocked(authtest.Epoch))
		assert.Nil(t, user.LastLoginAt())
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs(authtest.ValidEmail).
			WillReturnRows(pgxmock.NewRows(userRowColumns))

		_, err := NewUserRepository(mock).FindByEmail(ctx, email)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs(authtest.ValidEmail).
			WillReturnError(errors.New("connection refused"))

		_, err := NewUserRepository(mock).FindByEmail(ctx, email)
		errutil.AssertErrorCode(t, err, "USER_GET_BY_EMAIL_FAILED")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestUserRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs("01J0USER").
			WillReturnRows(userRow("01J0USER", authtest.ValidEmail, "alumno", 0, nil))

		user, err := NewUserRepository(mock).FindByID(ctx, "01J0USER")
		require.NoError(t, err)
		assert.Equal(t, authtest.ValidEmail, user.Email().String())
		assert.Equal(t, authtest.Epoch, user.CreatedAt())
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs("nope").
			WillReturnRows(pgxmock.NewRows(userRowColumns))

		_, err := NewUserRepository(mock).FindByID(ctx, "nope")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorContext(t, err, "user_id", "nope")
	})

	t.Run("corrupt row is a storage failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs("01J0USER").
			WillReturnRows(userRow("01J0USER", authtest.ValidEmail, "superuser", 0, nil))

		_, err := NewUserRepository(mock).FindByID(ctx, "01J0USER")
		require.Error(t, err)
		assert.Equal(t, "USER_DECODE_FAILED", errutil.Code(err))
		assert.False(t, auth.IsPublicCode(errutil.Code(err)))
	})
}

func TestUserRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns an id", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs("01J0NEW", authtest.ValidEmail, "plain:"+authtest.ValidPassword, authtest.ValidName,
				"alumno", true, pgxmock.AnyArg(), pgxmock.AnyArg(), 0, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewUserRepository(mock)
		repo.newID = func() string { return "01J0NEW" }

		saved, err := repo.Save(ctx, authtest.NewUser(t, authtest.WithID("")))
		require.NoError(t, err)
		assert.Equal(t, "01J0NEW", saved.ID())
	})

	t.Run("default ids are ULIDs", func(t *testing.T) {
		repo := NewUserRepository(nil)
		assert.Len(t, repo.newID(), 26)
		assert.NotEqual(t, repo.newID(), repo.newID())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "idx_users_email"})

		_, err := NewUserRepository(mock).Save(ctx, authtest.NewUser(t))
		assert.Equal(t, auth.CodeEmailTaken, errutil.Code(err))
	})

	t.Run("other failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.CheckViolation})

		_, err := NewUserRepository(mock).Save(ctx, authtest.NewUser(t))
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
	})
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("persists lockout state", func(t *testing.T) {
		mock := newMockPool(t)
		user := authtest.NewUser(t, authtest.WithID("01J0USER"))
		user.IncrementLoginAttempts()
		user.LockAccount(authtest.Epoch, 30*time.Minute)
		until := authtest.Epoch.Add(30 * time.Minute)

		mock.ExpectExec(`UPDATE users SET`).
			WithArgs("01J0USER", authtest.ValidEmail, "plain:"+authtest.ValidPassword, authtest.ValidName,
				"alumno", true, (*time.Time)(nil), 1, &until).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewUserRepository(mock).Update(ctx, user))
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET`).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewUserRepository(mock).Update(ctx, authtest.NewUser(t))
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("email owned by another user", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET`).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		err := NewUserRepository(mock).Update(ctx, authtest.NewUser(t))
		assert.Equal(t, auth.CodeEmailTaken, errutil.Code(err))
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET`).
			WillReturnError(errors.New("connection reset"))

		err := NewUserRepository(mock).Update(ctx, authtest.NewUser(t))
		errutil.AssertErrorCode(t, err, "USER_UPDATE_FAILED")
	})
}
