// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/uctgym/gymauth/pkg/errutil"
)

var tracer = otel.Tracer("gymauth/auth")

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}

// Dependencies are the collaborators shared by all use cases. Optional
// fields fall back to defaults: SystemClock, slog.Default(),
// DefaultEmailPolicy and DefaultSecurityPolicy. Mailer may be nil.
type Dependencies struct {
	Users    UserRepository
	Tokens   TokenRepository
	Hasher   PasswordHasher
	Issuer   TokenService
	Clock    Clock
	Mailer   ResetMailer
	Logger   *slog.Logger
	Emails   *EmailPolicy
	Security SecurityPolicy

	// ExposeResetToken echoes reset tokens in RequestPasswordReset results.
	// Never enable in production.
	ExposeResetToken bool
}

type dependency uint8

const (
	needUsers dependency = 1 << iota
	needTokens
	needHasher
	needIssuer
)

func (d Dependencies) prepare(need dependency) (Dependencies, error) {
	checks := []struct {
		flag    dependency
		missing bool
		name    string
	}{
		{needUsers, d.Users == nil, "user repository"},
		{needTokens, d.Tokens == nil, "token repository"},
		{needHasher, d.Hasher == nil, "password hasher"},
		{needIssuer, d.Issuer == nil, "token service"},
	}
	for _, c := range checks {
		if need&c.flag != 0 && c.missing {
			return d, oops.Code(CodeMissingDep).Errorf("%s is required", c.name)
		}
	}

	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Emails == nil {
		d.Emails = DefaultEmailPolicy()
	}
	if d.Security == (SecurityPolicy{}) {
		d.Security = DefaultSecurityPolicy()
	}
	if err := d.Security.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// Failure describes why a use case did not succeed.
type Failure struct {
	Code    string
	Message string
}

// run executes fn inside a span, recording metrics and converting errors
// and panics into a Failure.
func run[T any](ctx context.Context, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (out T, failure *Failure) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "auth."+op)
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out = zero
			failure = classify(logger, op, oops.Code(codeUseCasePanicked).With("operation", op).Errorf("panic: %v", r))
		}
		outcome := OutcomeSuccess
		if failure != nil {
			outcome = failure.Code
			span.SetStatus(codes.Error, failure.Code)
		}
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		span.End()
		RecordOperation(op, outcome)
		RecordOperationDuration(op, time.Since(start))
	}()

	out, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		return out, classify(logger, op, err)
	}
	return out, nil
}

// classify keeps client-safe errors and collapses everything else into
// CodeInternal after logging it.
func classify(logger *slog.Logger, op string, err error) *Failure {
	code := errutil.Code(err)
	if IsPublicCode(code) {
		return &Failure{Code: code, Message: err.Error()}
	}
	errutil.LogError(logger, op+" failed", err)
	return &Failure{Code: CodeInternal, Message: MsgInternal}
}

type field struct {
	value   string
	message string
}

// requireFields fails with CodeMissingField for the first empty value.
func requireFields(fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return oops.Code(CodeMissingField).Errorf("%s", f.message)
		}
	}
	return nil
}

// storeError reports a repository failure as codeStoreFailed. The cause is
// flattened into the message and context rather than wrapped, so a public
// code raised inside a repository never reaches the client through classify.
func storeError(operation string, err error) error {
	return oops.Code(codeStoreFailed).
		With("operation", operation).
		With("cause_code", errutil.Code(err)).
		Errorf("%s: %v", operation, err)
}
