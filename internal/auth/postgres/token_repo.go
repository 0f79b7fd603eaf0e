// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/internal/store"
)

// tokenTable names one of the two token tables. Both share a schema.
type tokenTable string

const (
	refreshTable tokenTable = "refresh_tokens"
	resetTable   tokenTable = "reset_tokens"
)

// TokenRepository implements auth.TokenRepository using PostgreSQL.
// Only SHA256 hashes of tokens are stored.
type TokenRepository struct {
	db store.DB
}

// NewTokenRepository creates a TokenRepository.
func NewTokenRepository(db store.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// SaveRefreshToken implements auth.TokenRepository.
func (r *TokenRepository) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return r.save(ctx, refreshTable, userID, token, expiresAt)
}

// FindRefreshToken implements auth.TokenRepository.
func (r *TokenRepository) FindRefreshToken(ctx context.Context, token string) (*auth.TokenRecord, error) {
	return r.find(ctx, refreshTable, token)
}

// RevokeRefreshToken implements auth.TokenRepository.
func (r *TokenRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	return r.revoke(ctx, refreshTable, token)
}

// SaveResetToken implements auth.TokenRepository.
func (r *TokenRepository) SaveResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return r.save(ctx, resetTable, userID, token, expiresAt)
}

// FindResetToken implements auth.TokenRepository.
func (r *TokenRepository) FindResetToken(ctx context.Context, token string) (*auth.TokenRecord, error) {
	return r.find(ctx, resetTable, token)
}

// RevokeResetToken implements auth.TokenRepository.
func (r *TokenRepository) RevokeResetToken(ctx context.Context, token string) error {
	return r.revoke(ctx, resetTable, token)
}

// RevokeAllUserTokens implements auth.TokenRepository. Both tables are
// cleared in a single statement.
func (r *TokenRepository) RevokeAllUserTokens(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		WITH refresh AS (DELETE FROM refresh_tokens WHERE user_id = $1)
		DELETE FROM reset_tokens WHERE user_id = $1
	`, userID)
	if err != nil {
		return oops.Code("TOKEN_REVOKE_ALL_FAILED").
			With("operation", "revoke all user tokens").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// CleanExpiredTokens implements auth.TokenRepository.
func (r *TokenRepository) CleanExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := r.db.QueryRow(ctx, `
		WITH refresh AS (
			DELETE FROM refresh_tokens WHERE expires_at <= $1 RETURNING 1
		), reset AS (
			DELETE FROM reset_tokens WHERE expires_at <= $1 RETURNING 1
		)
		SELECT (SELECT count(*) FROM refresh) + (SELECT count(*) FROM reset)
	`, now).Scan(&removed)
	if err != nil {
		return 0, oops.Code("TOKEN_CLEANUP_FAILED").
			With("operation", "delete expired tokens").
			Wrap(err)
	}
	return removed, nil
}

func (r *TokenRepository) save(ctx context.Context, table tokenTable, userID, token string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO `+string(table)+` (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
		auth.HashToken(token), userID, expiresAt)
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert token").
			With("table", string(table)).
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

func (r *TokenRepository) find(ctx context.Context, table tokenTable, token string) (*auth.TokenRecord, error) {
	var rec auth.TokenRecord
	err := r.db.QueryRow(ctx,
		`SELECT user_id, expires_at FROM `+string(table)+` WHERE token_hash = $1`,
		auth.HashToken(token)).Scan(&rec.UserID, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("table", string(table)).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get token").
			With("table", string(table)).
			Wrap(err)
	}
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	return &rec, nil
}

func (r *TokenRepository) revoke(ctx context.Context, table tokenTable, token string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM `+string(table)+` WHERE token_hash = $1`,
		auth.HashToken(token))
	if err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").
			With("operation", "delete token").
			With("table", string(table)).
			Wrap(err)
	}
	return nil
}

var _ auth.TokenRepository = (*TokenRepository)(nil)
