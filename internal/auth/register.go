// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"

	"github.com/uctgym/gymauth/pkg/errutil"
)

// RegisterInput is the registration request. An empty Role means DefaultRole.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

// RegisterUser creates accounts.
type RegisterUser struct {
	deps Dependencies
}

// NewRegisterUser requires Users and Hasher.
func NewRegisterUser(deps Dependencies) (*RegisterUser, error) {
	deps, err := deps.prepare(needUsers | needHasher)
	if err != nil {
		return nil, err
	}
	return &RegisterUser{deps: deps}, nil
}

// Execute registers a user. The password hash is never part of the result.
func (uc *RegisterUser) Execute(ctx context.Context, in RegisterInput) RegisterResult {
	user, failure := run(ctx, uc.deps.Logger, OpRegister, func(ctx context.Context) (*RegisteredUser, error) {
		return uc.register(ctx, in)
	})
	if failure != nil {
		return RegisterResult{Error: failure.Message, Code: failure.Code}
	}
	return RegisterResult{Success: true, User: user}
}

func (uc *RegisterUser) register(ctx context.Context, in RegisterInput) (*RegisteredUser, error) {
	if err := requireFields(
		field{in.Email, "El email es requerido y debe ser una cadena de texto"},
		field{in.Password, "La contraseña es requerida y debe ser una cadena de texto"},
		field{in.Name, "El nombre es requerido y debe ser una cadena de texto"},
	); err != nil {
		return nil, err
	}

	validation := PasswordPolicy{}.Validate(in.Password)
	if !validation.IsValid {
		return nil, oops.Code(CodeWeakPassword).
			With("violations", len(validation.Errors)).
			Errorf("Validación de contraseña falló: %s", strings.Join(validation.Errors, ", "))
	}

	email, err := uc.deps.Emails.Parse(in.Email)
	if err != nil {
		return nil, err
	}

	_, err = uc.deps.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, ErrNotFound):
		return nil, storeError("find user by email", err)
	}

	hash, err := uc.deps.Hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code(codeHashFailed).With("operation", "hash password").Wrap(err)
	}
	hashed, err := NewHashedPassword(hash)
	if err != nil {
		return nil, oops.Code(codeHashFailed).Errorf("hasher returned an empty hash")
	}

	user, err := NewUser(UserParams{
		Email:     email,
		Password:  hashed,
		Name:      in.Name,
		Role:      Role(in.Role),
		CreatedAt: uc.deps.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	saved, err := uc.deps.Users.Save(ctx, user)
	if err != nil {
		if errutil.Code(err) == CodeEmailTaken {
			return nil, ErrEmailTaken
		}
		return nil, storeError("save user", err)
	}

	uc.deps.Logger.InfoContext(ctx, "user registered", "user", saved)

	return &RegisteredUser{
		UserView:  *viewOf(saved),
		IsActive:  saved.IsActive(),
		CreatedAt: saved.CreatedAt(),
	}, nil
}
