// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/uctgym/gymauth/internal/config"
	"github.com/uctgym/gymauth/internal/logging"
	"github.com/uctgym/gymauth/internal/xdg"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// configFlags are the flags that map onto configuration keys.
var configFlags = map[string]struct{}{
	"env":          {},
	"log-format":   {},
	"database-url": {},
	"token-store":  {},
	"metrics-addr": {},

	"expose-reset-token": {},
}

// NewRootCmd creates the root command for the gymauth CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "gymauth",
		Short: "gymauth - accounts and sessions for the UCT gym",
		Long: `gymauth manages accounts, login sessions and password resets for the
UCT gym booking system: PostgreSQL storage, JWT access tokens, rotating
refresh tokens and institutional email checks.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML, default $XDG_CONFIG_HOME/gymauth/config.yaml if present)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with GYMAUTH_ variables (ignored when missing)")
	cmd.PersistentFlags().String("env", config.EnvDevelopment, "environment (development, test or production)")
	cmd.PersistentFlags().String("log-format", "json", "log format (json or text)")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")
	cmd.PersistentFlags().String("token-store", config.TokenStorePostgres, "token store backend (postgres or redis)")

	cmd.AddCommand(NewServeCmd(deps))
	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewSweepCmd(deps))
	cmd.AddCommand(NewUserCmd(deps))
	cmd.AddCommand(NewMailWorkerCmd(deps))
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig layers defaults, files, environment and the flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file := configFile
	if file == "" {
		found, err := xdg.FindConfigFile()
		if err != nil {
			return nil, err
		}
		file = found
	}
	return config.Load(config.Options{
		File:   file,
		DotEnv: envFile,
		Flags:  configFlagSet(cmd.Flags()),
	})
}

// configFlagSet keeps only the flags that name configuration keys, so command
// flags such as --email never shadow a config section.
func configFlagSet(flags *pflag.FlagSet) *pflag.FlagSet {
	out := pflag.NewFlagSet("config", pflag.ContinueOnError)
	flags.VisitAll(func(f *pflag.Flag) {
		if _, ok := configFlags[f.Name]; ok {
			out.AddFlag(f)
		}
	})
	return out
}

// setupLogger writes to the command's stderr and becomes the default logger.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	logger := logging.Setup("gymauth", version, cfg.LogFormat, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return logger
}
