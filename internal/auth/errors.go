// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes reported in use case results.
const (
	CodeInternal           = "AUTH_INTERNAL"
	CodeMissingField       = "AUTH_MISSING_FIELD"
	CodeWeakPassword       = "AUTH_WEAK_PASSWORD"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountDisabled    = "AUTH_ACCOUNT_DISABLED"
	CodeAccountLocked      = "AUTH_ACCOUNT_LOCKED"
	CodeForbidden          = "AUTH_FORBIDDEN"

	CodeEmailRequired   = "EMAIL_REQUIRED"
	CodeEmailFormat     = "EMAIL_INVALID_FORMAT"
	CodeEmailDomain     = "EMAIL_DOMAIN_NOT_ALLOWED"
	CodeEmailTooLong    = "EMAIL_TOO_LONG"
	CodeHashRequired    = "PASSWORD_HASH_REQUIRED"
	CodeNameRequired    = "USER_NAME_REQUIRED"
	CodeNameTooShort    = "USER_NAME_TOO_SHORT"
	CodeNameTooLong     = "USER_NAME_TOO_LONG"
	CodeInvalidRole     = "USER_INVALID_ROLE"
	CodePasswordType    = "USER_PASSWORD_TYPE_MISMATCH"
	CodeEmailTaken      = "USER_EMAIL_TAKEN"
	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeTokenInvalid    = "TOKEN_INVALID"
	CodeTokenNotFound   = "TOKEN_NOT_FOUND"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeTokenType       = "TOKEN_WRONG_TYPE"
	CodeTokenOwner      = "TOKEN_OWNER_MISMATCH"
	CodeMissingDep      = "AUTH_MISSING_DEPENDENCY"
	codeHashFailed      = "AUTH_HASH_FAILED"
	codeTokenIssue      = "TOKEN_ISSUE_FAILED"
	codeStoreFailed     = "AUTH_STORE_FAILED"
	codeMailFailed      = "AUTH_MAIL_FAILED"
	codeInvalidHash     = "AUTH_INVALID_HASH"
	codeRandomFailed    = "AUTH_RANDOM_FAILED"
	codeUseCasePanicked = "AUTH_PANIC"
)

// MsgInternal is reported for failures that carry no client-safe message.
const MsgInternal = "Error interno del servidor"

// publicCodes lists the codes whose messages may be returned to clients.
var publicCodes = map[string]struct{}{
	CodeMissingField:       {},
	CodeWeakPassword:       {},
	CodeInvalidCredentials: {},
	CodeAccountDisabled:    {},
	CodeAccountLocked:      {},
	CodeForbidden:          {},
	CodeEmailRequired:      {},
	CodeEmailFormat:        {},
	CodeEmailDomain:        {},
	CodeEmailTooLong:       {},
	CodeHashRequired:       {},
	CodeNameRequired:       {},
	CodeNameTooShort:       {},
	CodeNameTooLong:        {},
	CodeInvalidRole:        {},
	CodePasswordType:       {},
	CodeEmailTaken:         {},
	CodeUserNotFound:       {},
	CodeTokenInvalid:       {},
	CodeTokenNotFound:      {},
	CodeTokenExpired:       {},
	CodeTokenType:          {},
	CodeTokenOwner:         {},
}

// IsPublicCode reports whether errors with the given code carry a message
// that can be shown to the client.
func IsPublicCode(code string) bool {
	_, ok := publicCodes[code]
	return ok
}

// ErrEmailTaken is returned by UserRepository.Save when the email is in use.
var ErrEmailTaken = oops.Code(CodeEmailTaken).Errorf("Ya existe un usuario con este email")
