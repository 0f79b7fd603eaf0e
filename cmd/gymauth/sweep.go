// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/uctgym/gymauth/internal/sweeper"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired refresh and reset tokens once",
		Long: `Delete every refresh and reset token whose expiry has passed and print
how many were removed. serve does the same on an interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, deps)
		},
	}
}

func runSweep(cmd *cobra.Command, deps *Deps) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	stores, err := deps.StoresFactory(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open stores").Wrap(err)
	}
	defer closeLogged(ctx, logger, "closing stores", stores.Close)

	removed, err := sweeper.New(stores.Tokens, cfg.Sweeper.Interval,
		sweeper.WithClock(deps.Clock),
		sweeper.WithLogger(logger)).RunOnce(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d expired token(s)\n", removed)
	return nil
}
