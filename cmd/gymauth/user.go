// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/uctgym/gymauth/internal/auth"
)

// userConfig holds the flags of the user subcommands.
type userConfig struct {
	email    string
	name     string
	password string
	role     string
}

// NewUserCmd creates the user subcommand.
func NewUserCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer gym accounts",
		Long: `Create accounts, activate or deactivate them and trigger password
reset emails without going through the API.`,
	}

	cmd.AddCommand(newUserRegisterCmd(deps))
	cmd.AddCommand(newUserStatusCmd(deps, "activate", true))
	cmd.AddCommand(newUserStatusCmd(deps, "deactivate", false))
	cmd.AddCommand(newUserResetCmd(deps))

	return cmd
}

func newUserRegisterCmd(deps *Deps) *cobra.Command {
	cfg := &userConfig{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account with an institutional email. The password must satisfy
the password policy; --password-stdin reads it from standard input instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fromStdin, _ := cmd.Flags().GetBool("password-stdin") //nolint:errcheck // flag is defined below
			if fromStdin {
				password, err := readPassword(cmd)
				if err != nil {
					return err
				}
				cfg.password = password
			}
			return withService(cmd, deps, false, func(ctx context.Context, svc *auth.Service) error {
				result := svc.Register.Execute(ctx, auth.RegisterInput{
					Email:    cfg.email,
					Password: cfg.password,
					Name:     cfg.name,
					Role:     cfg.role,
				})
				if !result.Success {
					return resultError(result.Code, result.Error)
				}
				cmd.Printf("Registered %s (%s) as %s, id %s\n",
					result.User.Email, result.User.Name, result.User.Role, result.User.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "institutional email (required)")
	cmd.Flags().StringVar(&cfg.name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&cfg.password, "password", "", "initial password")
	cmd.Flags().Bool("password-stdin", false, "read the password from standard input")
	cmd.Flags().StringVar(&cfg.role, "role", string(auth.DefaultRole), "role: alumno, staff or admin")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag exists
	_ = cmd.MarkFlagRequired("name")  //nolint:errcheck // flag exists

	return cmd
}

func newUserStatusCmd(deps *Deps, verb string, active bool) *cobra.Command {
	short := "Reactivate an account and clear its lockout"
	if !active {
		short = "Deactivate an account and revoke all of its tokens"
	}
	return &cobra.Command{
		Use:   verb + " EMAIL|ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, deps, false, func(ctx context.Context, svc *auth.Service) error {
				result := svc.SetStatus.Execute(ctx, statusInput(args[0], active))
				if !result.Success {
					return resultError(result.Code, result.Error)
				}
				state := "active"
				if !result.Active {
					state = "inactive"
				}
				cmd.Printf("%s (%s) is now %s\n", result.User.Email, result.User.ID, state)
				return nil
			})
		},
	}
}

func newUserResetCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request-reset EMAIL",
		Short: "Send a password reset email",
		Long: `Issue a single-use password reset token and deliver it through the
configured mail driver. With --expose-reset-token (or expose_reset_token in
the configuration) the token is also printed; production refuses it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, deps, true, func(ctx context.Context, svc *auth.Service) error {
				result := svc.RequestReset.Execute(ctx, auth.PasswordResetRequest{Email: args[0]})
				if !result.Success {
					return resultError(result.Code, result.Error)
				}
				cmd.Println(result.Message)
				if result.ResetToken != "" {
					cmd.Printf("Reset token: %s\n", result.ResetToken)
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("expose-reset-token", false, "print the reset token (refused in production)")
	return cmd
}

// statusInput treats arguments containing "@" as emails and anything else as ids.
func statusInput(arg string, active bool) auth.SetUserStatusInput {
	if strings.Contains(arg, "@") {
		return auth.SetUserStatusInput{Email: arg, Active: active}
	}
	return auth.SetUserStatusInput{UserID: arg, Active: active}
}

func readPassword(cmd *cobra.Command) (string, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(cmd.InOrStdin()); err != nil {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	line, _, _ := strings.Cut(buf.String(), "\n")
	return strings.TrimRight(line, "\r"), nil
}

// withService opens the stores, builds the auth service and runs fn.
// The mailer is only built when withMailer is set.
func withService(cmd *cobra.Command, deps *Deps, withMailer bool, fn func(context.Context, *auth.Service) error) error {
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

	var mailer auth.ResetMailer
	if withMailer {
		m, closeMailer, err := buildMailer(cfg, deps, logger)
		if err != nil {
			return oops.With("operation", "build mailer").Wrap(err)
		}
		defer closeLogged(ctx, logger, "closing mailer", closeMailer)
		mailer = m
	}

	svc, err := buildService(cfg, deps, stores, mailer, logger)
	if err != nil {
		return oops.With("operation", "build auth service").Wrap(err)
	}
	return fn(ctx, svc)
}

func closeLogged(ctx context.Context, logger *slog.Logger, msg string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.WarnContext(ctx, msg, "error", err)
	}
}
