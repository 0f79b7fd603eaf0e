// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/internal/mail"
	"github.com/uctgym/gymauth/internal/observability"
	"github.com/uctgym/gymauth/internal/sweeper"
)

// shutdownTimeout bounds the graceful stop of the observability server.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the token sweeper and the metrics/health endpoints",
		Long: `Run the background side of gymauth: expired refresh and reset tokens are
swept on an interval, and Prometheus metrics plus liveness/readiness probes are
served on --metrics-addr. Stops on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, deps)
		},
	}

	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	logger.InfoContext(ctx, "starting gymauth",
		"env", cfg.Env,
		"token_store", cfg.TokenStore,
		"metrics_addr", cfg.MetricsAddr,
		"sweep_interval", cfg.Sweeper.Interval)

	stores, err := deps.StoresFactory(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open stores").Wrap(err)
	}
	defer closeLogged(ctx, logger, "closing stores", stores.Close)

	var serverErrs <-chan error
	if cfg.MetricsAddr != "" {
		obs := deps.ObservabilityServerFactory(cfg.MetricsAddr, version, stores.Ready,
			auth.RegisterMetrics,
			mail.RegisterMetrics,
			sweeper.RegisterMetrics)
		serverErrs, err = obs.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := obs.Stop(stopCtx); err != nil {
				logger.WarnContext(ctx, "stopping observability server", "error", err)
			}
		}()
	}

	sw := sweeper.New(stores.Tokens, cfg.Sweeper.Interval,
		sweeper.WithClock(deps.Clock),
		sweeper.WithLogger(logger))
	sw.Start(ctx)
	defer sw.Stop()

	select {
	case <-ctx.Done():
		logger.InfoContext(ctx, "shutting down")
		return nil
	case err, ok := <-serverErrs:
		if ok && err != nil {
			return oops.Code("OBSERVABILITY_FAILED").Wrap(err)
		}
		return nil
	}
}

var _ ObservabilityServer = (*observability.Server)(nil)
