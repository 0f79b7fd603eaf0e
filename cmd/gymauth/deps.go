// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/internal/auth/postgres"
	"github.com/uctgym/gymauth/internal/auth/redisstore"
	"github.com/uctgym/gymauth/internal/config"
	"github.com/uctgym/gymauth/internal/mail"
	"github.com/uctgym/gymauth/internal/observability"
	"github.com/uctgym/gymauth/internal/store"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// StoresFactory opens the user and token repositories.
	// Default: openStores (PostgreSQL, plus Redis when token_store is redis)
	StoresFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr, version string, ready observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer

	// QueueFactory connects to the reset mail queue.
	// Default: mail.DialQueue
	QueueFactory func(url, name string) (MailQueue, error)

	// SenderFactory creates the outbound mail sender.
	// Default: mail.NewMailgunSender
	SenderFactory func(cfg config.MailgunConfig) (mail.Sender, error)

	// Hasher hashes passwords for the user commands.
	// Default: auth.NewArgon2idHasher
	Hasher auth.PasswordHasher

	// Clock drives token lifetimes and the sweeper.
	// Default: auth.SystemClock
	Clock auth.Clock
}

// withDefaults fills every nil field.
func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.StoresFactory == nil {
		out.StoresFactory = openStores
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr, version string, ready observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer {
			return observability.NewServer(addr, version, ready, registrars...)
		}
	}
	if out.QueueFactory == nil {
		out.QueueFactory = func(url, name string) (MailQueue, error) {
			return mail.DialQueue(url, name)
		}
	}
	if out.SenderFactory == nil {
		out.SenderFactory = func(cfg config.MailgunConfig) (mail.Sender, error) {
			return mail.NewMailgunSender(mail.MailgunConfig{
				Domain:  cfg.Domain,
				APIKey:  cfg.APIKey,
				From:    cfg.From,
				APIBase: cfg.APIBase,
			})
		}
	}
	if out.Hasher == nil {
		out.Hasher = auth.NewArgon2idHasher()
	}
	if out.Clock == nil {
		out.Clock = auth.SystemClock{}
	}
	return &out
}

// Stores bundles the repositories and how to probe and release them.
type Stores struct {
	Users  auth.UserRepository
	Tokens auth.TokenRepository
	// Ready is used for the readiness probe. Nil means always ready.
	Ready observability.ReadinessChecker

	closers []func() error
}

// Close releases every backing connection. It is safe on a nil Stores.
func (s *Stores) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	if err := errors.Join(errs...); err != nil {
		return oops.Code("STORE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Migrator is the part of store.Migrator the migrate command uses.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (store.MigrationStatus, error)
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// MailQueue wraps the methods used from mail.Queue.
type MailQueue interface {
	Publisher(clock auth.Clock, ttl time.Duration) *mail.QueuePublisher
	Consume(prefetch int) (<-chan amqp.Delivery, error)
	Close() error
}

// openStores connects PostgreSQL for users and tokens, and Redis for tokens
// when the configuration selects it.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	pool, err := store.Connect(ctx, store.PoolConfig{DSN: cfg.DatabaseURL}, logger)
	if err != nil {
		return nil, err
	}

	s := &Stores{
		Users:  postgres.NewUserRepository(pool),
		Tokens: postgres.NewTokenRepository(pool),
		Ready:  pool.Ping,
		closers: []func() error{func() error {
			pool.Close()
			return nil
		}},
	}
	if cfg.TokenStore != config.TokenStoreRedis {
		return s, nil
	}

	client, err := redisstore.NewClient(ctx, cfg.Redis.URL, logger)
	if err != nil {
		_ = s.Close() //nolint:errcheck // connect error takes precedence
		return nil, err
	}
	s.Tokens = redisstore.NewTokenRepository(client, cfg.Redis.Prefix)
	s.Ready = readyAll(pool.Ping, redisPing(client))
	s.closers = append(s.closers, client.Close)
	return s, nil
}

func redisPing(client redis.UniversalClient) observability.ReadinessChecker {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// readyAll passes when every checker passes.
func readyAll(checks ...observability.ReadinessChecker) observability.ReadinessChecker {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
