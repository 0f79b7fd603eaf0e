// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package mail

import (
	"context"
	"log/slog"
	"time"

	"github.com/uctgym/gymauth/internal/auth"
)

// LogMailer writes reset links to the log instead of sending them.
// It is meant for local development.
type LogMailer struct {
	composer *Composer
	logger   *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(composer *Composer, logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{composer: composer, logger: logger}
}

// SendPasswordResetEmail implements auth.ResetMailer.
func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	m.logger.InfoContext(ctx, "password reset email",
		"to", to,
		"link", m.composer.ResetLink(token))
	return nil
}

// DirectMailer renders reset messages and hands them to a Sender in the
// request path.
type DirectMailer struct {
	composer *Composer
	sender   Sender
	clock    auth.Clock
	ttl      time.Duration
}

// NewDirectMailer creates a DirectMailer. ttl is the reset token lifetime
// shown in the message.
func NewDirectMailer(composer *Composer, sender Sender, clock auth.Clock, ttl time.Duration) *DirectMailer {
	if clock == nil {
		clock = auth.SystemClock{}
	}
	return &DirectMailer{composer: composer, sender: sender, clock: clock, ttl: ttl}
}

// SendPasswordResetEmail implements auth.ResetMailer.
func (m *DirectMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	msg, err := m.composer.PasswordReset(to, token, m.clock.Now().Add(m.ttl))
	if err != nil {
		return err
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		RecordJob(OutcomeFailed)
		return err
	}
	RecordJob(OutcomeSent)
	return nil
}

var (
	_ auth.ResetMailer = (*LogMailer)(nil)
	_ auth.ResetMailer = (*DirectMailer)(nil)
)
