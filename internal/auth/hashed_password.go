// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"log/slog"
	"strings"

	"github.com/samber/oops"
)

const redactedHash = "[HashedPassword]"

// HashedPassword wraps a password hash produced by a PasswordHasher.
// It never holds a raw password and does not print its value.
type HashedPassword struct {
	value string
}

// NewHashedPassword wraps hash. Blank values are rejected.
func NewHashedPassword(hash string) (HashedPassword, error) {
	if strings.TrimSpace(hash) == "" {
		return HashedPassword{}, oops.Code(CodeHashRequired).Errorf("La contraseña hasheada no puede estar vacía")
	}
	return HashedPassword{value: hash}, nil
}

// Value returns the hash for hashers and repositories.
func (h HashedPassword) Value() string {
	return h.value
}

// IsZero reports whether h was never constructed.
func (h HashedPassword) IsZero() bool {
	return h.value == ""
}

// Equals compares the wrapped hashes.
func (h HashedPassword) Equals(other HashedPassword) bool {
	return h.value == other.value
}

// String implements fmt.Stringer without revealing the hash.
func (h HashedPassword) String() string {
	return redactedHash
}

// GoString keeps %#v from printing the hash.
func (h HashedPassword) GoString() string {
	return redactedHash
}

// LogValue implements slog.LogValuer.
func (h HashedPassword) LogValue() slog.Value {
	return slog.StringValue(redactedHash)
}
