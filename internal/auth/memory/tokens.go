// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/uctgym/gymauth/internal/auth"
)

// TokenRepository keeps refresh and reset tokens in maps keyed by token.
type TokenRepository struct {
	mu      sync.RWMutex
	refresh map[string]auth.TokenRecord
	reset   map[string]auth.TokenRecord
}

// NewTokenRepository creates an empty repository.
func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		refresh: make(map[string]auth.TokenRecord),
		reset:   make(map[string]auth.TokenRecord),
	}
}

// SaveRefreshToken implements auth.TokenRepository.
func (r *TokenRepository) SaveRefreshToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh[token] = auth.TokenRecord{UserID: userID, ExpiresAt: expiresAt}
	return nil
}

// FindRefreshToken implements auth.TokenRepository.
func (r *TokenRepository) FindRefreshToken(_ context.Context, token string) (*auth.TokenRecord, error) {
	return r.find(r.refresh, token)
}

// RevokeRefreshToken implements auth.TokenRepository.
func (r *TokenRepository) RevokeRefreshToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refresh, token)
	return nil
}

// RevokeAllUserTokens implements auth.TokenRepository.
func (r *TokenRepository) RevokeAllUserTokens(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tokens := range []map[string]auth.TokenRecord{r.refresh, r.reset} {
		for token, rec := range tokens {
			if rec.UserID == userID {
				delete(tokens, token)
			}
		}
	}
	return nil
}

// SaveResetToken implements auth.TokenRepository.
func (r *TokenRepository) SaveResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset[token] = auth.TokenRecord{UserID: userID, ExpiresAt: expiresAt}
	return nil
}

// FindResetToken implements auth.TokenRepository.
func (r *TokenRepository) FindResetToken(_ context.Context, token string) (*auth.TokenRecord, error) {
	return r.find(r.reset, token)
}

// RevokeResetToken implements auth.TokenRepository.
func (r *TokenRepository) RevokeResetToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reset, token)
	return nil
}

// CleanExpiredTokens implements auth.TokenRepository.
func (r *TokenRepository) CleanExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for _, tokens := range []map[string]auth.TokenRecord{r.refresh, r.reset} {
		for token, rec := range tokens {
			if !rec.ExpiresAt.After(now) {
				delete(tokens, token)
				removed++
			}
		}
	}
	return removed, nil
}

// RefreshTokens returns the number of stored refresh tokens of userID.
func (r *TokenRepository) RefreshTokens(userID string) int {
	return r.count(r.refresh, userID)
}

// ResetTokens returns the number of stored reset tokens of userID.
func (r *TokenRepository) ResetTokens(userID string) int {
	return r.count(r.reset, userID)
}

func (r *TokenRepository) find(tokens map[string]auth.TokenRecord, token string) (*auth.TokenRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := tokens[token]
	if !ok {
		return nil, oops.Wrap(auth.ErrNotFound)
	}
	return &rec, nil
}

func (r *TokenRepository) count(tokens map[string]auth.TokenRecord, userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rec := range tokens {
		if rec.UserID == userID {
			n++
		}
	}
	return n
}

var _ auth.TokenRepository = (*TokenRepository)(nil)
