// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/internal/config"
	"github.com/uctgym/gymauth/internal/mail"
)

// buildService wires the auth use cases from configuration.
func buildService(cfg *config.Config, deps *Deps, stores *Stores, mailer auth.ResetMailer, logger *slog.Logger) (*auth.Service, error) {
	emails, err := auth.NewEmailPolicy(cfg.Email.AllowedDomains...)
	if err != nil {
		return nil, err
	}
	issuer, err := auth.NewJWTTokenService([]byte(cfg.JWT.Secret),
		auth.WithIssuer(cfg.JWT.Issuer),
		auth.WithAudience(cfg.JWT.Audience),
		auth.WithClock(deps.Clock))
	if err != nil {
		return nil, err
	}
	return auth.NewService(auth.Dependencies{
		Users:            stores.Users,
		Tokens:           stores.Tokens,
		Hasher:           deps.Hasher,
		Issuer:           issuer,
		Clock:            deps.Clock,
		Mailer:           mailer,
		Logger:           logger,
		Emails:           emails,
		Security:         cfg.SecurityPolicy(),
		ExposeResetToken: cfg.ExposeResetToken,
	})
}

// buildMailer selects the reset mailer for mail.driver. The returned close
// function is never nil.
func buildMailer(cfg *config.Config, deps *Deps, logger *slog.Logger) (auth.ResetMailer, func() error, error) {
	noop := func() error { return nil }

	composer, err := mail.NewComposer(cfg.Mail.ResetURL, cfg.Location())
	if err != nil {
		return nil, noop, err
	}
	ttl := cfg.Security.ResetTokenTTL

	switch cfg.Mail.Driver {
	case config.MailDriverLog:
		return mail.NewLogMailer(composer, logger), noop, nil
	case config.MailDriverMailgun:
		sender, err := deps.SenderFactory(cfg.Mail.Mailgun)
		if err != nil {
			return nil, noop, err
		}
		return mail.NewDirectMailer(composer, sender, deps.Clock, ttl), noop, nil
	case config.MailDriverQueue:
		queue, err := deps.QueueFactory(cfg.Mail.AMQP.URL, cfg.Mail.AMQP.Queue)
		if err != nil {
			return nil, noop, err
		}
		return queue.Publisher(deps.Clock, ttl), queue.Close, nil
	default:
		return nil, noop, oops.Code("CONFIG_INVALID").With("driver", cfg.Mail.Driver).
			Errorf("unknown mail driver %q", cfg.Mail.Driver)
	}
}

// resultError turns a failed use case result into an oops error carrying
// its public code.
func resultError(code, message string) error {
	return oops.Code(code).Errorf("%s", message)
}
