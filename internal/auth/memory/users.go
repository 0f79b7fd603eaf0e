// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

// Package memory provides in-memory auth repositories for tests and local runs.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/samber/oops"

	"github.com/uctgym/gymauth/internal/auth"
)

// UserRepository stores users in a map with sequential identifiers.
// Users are copied on the way in and out.
type UserRepository struct {
	mu      sync.RWMutex
	nextID  int
	byID    map[string]auth.UserRecord
	byEmail map[string]string
}

// NewUserRepository creates an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]auth.UserRecord),
		byEmail: make(map[string]string),
	}
}

// FindByEmail implements auth.UserRepository.
func (r *UserRepository) FindByEmail(_ context.Context, email auth.Email) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email.String()]
	if !ok {
		return nil, oops.With("email", email.String()).Wrap(auth.ErrNotFound)
	}
	return restore(r.byID[id])
}

// FindByID implements auth.UserRepository.
func (r *UserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, oops.With("user_id", id).Wrap(auth.ErrNotFound)
	}
	return restore(rec)
}

// Save implements auth.UserRepository.
func (r *UserRepository) Save(_ context.Context, user *auth.User) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := user.Record()
	if _, taken := r.byEmail[rec.Email]; taken {
		return nil, auth.ErrEmailTaken
	}
	r.nextID++
	rec.ID = strconv.Itoa(r.nextID)
	r.byID[rec.ID] = rec
	r.byEmail[rec.Email] = rec.ID
	return restore(rec)
}

// Update implements auth.UserRepository.
func (r *UserRepository) Update(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := user.Record()
	old, ok := r.byID[rec.ID]
	if !ok {
		return oops.With("user_id", rec.ID).Wrap(auth.ErrNotFound)
	}
	if rec.Email != old.Email {
		if owner, taken := r.byEmail[rec.Email]; taken && owner != rec.ID {
			return auth.ErrEmailTaken
		}
		delete(r.byEmail, old.Email)
		r.byEmail[rec.Email] = rec.ID
	}
	r.byID[rec.ID] = rec
	return nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func restore(rec auth.UserRecord) (*auth.User, error) {
	u, err := auth.RestoreUser(rec)
	if err != nil {
		return nil, oops.Code("USER_DECODE_FAILED").With("user_id", rec.ID).Errorf("decode user: %s", err)
	}
	return u, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
