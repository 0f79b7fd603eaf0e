// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/uctgym/gymauth/internal/mail"
)

// NewMailWorkerCmd creates the mail-worker subcommand.
func NewMailWorkerCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "mail-worker",
		Short: "Deliver queued password reset emails through Mailgun",
		Long: `Consume password reset jobs from the AMQP queue (mail.amqp) and send
them through Mailgun (mail.mailgun), throttled by mail.worker.rate_per_second.
Failed sends are requeued; malformed and expired jobs are dropped. Stops on
SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMailWorker(ctx, cmd, deps)
		},
	}
}

func runMailWorker(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	if cfg.Mail.AMQP.URL == "" {
		return oops.Code("CONFIG_INVALID").With("field", "mail.amqp.url").
			Errorf("mail.amqp.url is required for the mail worker")
	}

	composer, err := mail.NewComposer(cfg.Mail.ResetURL, cfg.Location())
	if err != nil {
		return err
	}
	sender, err := deps.SenderFactory(cfg.Mail.Mailgun)
	if err != nil {
		return oops.With("operation", "create mail sender").Wrap(err)
	}

	queue, err := deps.QueueFactory(cfg.Mail.AMQP.URL, cfg.Mail.AMQP.Queue)
	if err != nil {
		return oops.With("operation", "connect mail queue").Wrap(err)
	}
	defer closeLogged(ctx, logger, "closing mail queue", queue.Close)

	deliveries, err := queue.Consume(cfg.Mail.Worker.Prefetch)
	if err != nil {
		return err
	}

	worker := mail.NewWorker(composer, sender, mail.WorkerConfig{
		RatePerSecond: cfg.Mail.Worker.RatePerSecond,
		Burst:         cfg.Mail.Worker.Burst,
	}, deps.Clock, logger)

	logger.InfoContext(ctx, "mail worker started",
		"queue", cfg.Mail.AMQP.Queue,
		"rate_per_second", cfg.Mail.Worker.RatePerSecond,
		"prefetch", cfg.Mail.Worker.Prefetch)

	if err := worker.Run(ctx, deliveries); err != nil {
		return err
	}
	logger.InfoContext(ctx, "mail worker stopped")
	return nil
}
