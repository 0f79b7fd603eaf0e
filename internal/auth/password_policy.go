// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Password strength limits.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// PasswordSpecialChars is the set that satisfies the special character rule.
const PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`

// Sequences and common passwords rejected as a password prefix.
var (
	ascendingRuns   = []string{"01234567890", "abcdefghijklmnopqrstuvwxyz"}
	commonPasswords = []string{"password", "123456", "qwerty", "admin", "letmein"}
)

const msgWeakPattern = "La contraseña contiene patrones débiles comunes"

// PasswordValidation is the outcome of PasswordPolicy.Validate.
type PasswordValidation struct {
	IsValid bool
	Errors  []string
}

// PasswordPolicy validates password strength. The zero value is ready to use.
type PasswordPolicy struct{}

// Validate checks every rule and accumulates the violations.
func (PasswordPolicy) Validate(password string) PasswordValidation {
	if password == "" {
		return PasswordValidation{Errors: []string{"La contraseña es requerida y debe ser una cadena de texto"}}
	}

	var errs []string
	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength {
		errs = append(errs, fmt.Sprintf("La contraseña debe tener al menos %d caracteres", MinPasswordLength))
	}
	if length > MaxPasswordLength {
		errs = append(errs, fmt.Sprintf("La contraseña no debe exceder los %d caracteres", MaxPasswordLength))
	}
	if !strings.ContainsFunc(password, isASCIIUpper) {
		errs = append(errs, "La contraseña debe contener al menos una letra mayúscula")
	}
	if !strings.ContainsFunc(password, isASCIILower) {
		errs = append(errs, "La contraseña debe contener al menos una letra minúscula")
	}
	if !strings.ContainsFunc(password, isASCIIDigit) {
		errs = append(errs, "La contraseña debe contener al menos un número")
	}
	if !strings.ContainsAny(password, PasswordSpecialChars) {
		errs = append(errs, "La contraseña debe contener al menos un carácter especial")
	}
	if hasWeakPattern(password) {
		errs = append(errs, msgWeakPattern)
	}

	return PasswordValidation{IsValid: len(errs) == 0, Errors: errs}
}

// RequirementsMessage describes the rules for display to users.
func (PasswordPolicy) RequirementsMessage() string {
	requirements := []string{
		fmt.Sprintf("Al menos %d caracteres", MinPasswordLength),
		fmt.Sprintf("No más de %d caracteres", MaxPasswordLength),
		"Al menos una letra mayúscula",
		"Al menos una letra minúscula",
		"Al menos un número",
		"Al menos un carácter especial",
	}
	return "La contraseña debe cumplir los siguientes requisitos:\n• " + strings.Join(requirements, "\n• ")
}

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

func hasWeakPattern(password string) bool {
	return allSameRune(password) || startsWithRun(password) || startsWithCommon(password)
}

func allSameRune(s string) bool {
	if utf8.RuneCountInString(s) < 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}

// startsWithRun matches three consecutive ascending or descending
// characters at the start of the password, case-insensitively.
func startsWithRun(password string) bool {
	if len(password) < 3 {
		return false
	}
	prefix := strings.ToLower(password[:3])
	for _, run := range ascendingRuns {
		if strings.Contains(run, prefix) || strings.Contains(reverse(run), prefix) {
			return true
		}
	}
	return false
}

func startsWithCommon(password string) bool {
	lower := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.HasPrefix(lower, common) {
			return true
		}
	}
	return false
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
