// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uctgym/gymauth/internal/auth/authtest"
)

// recordingSender captures messages and fails with err when set.
type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

func jobCount(outcome string) float64 {
	return testutil.ToFloat64(Jobs.WithLabelValues(outcome))
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := NewLogMailer(newComposer(t), logger).
		SendPasswordResetEmail(context.Background(), authtest.ValidEmail, "tok123")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"msg":"password reset email"`)
	assert.Contains(t, buf.String(), authtest.ValidEmail)
	assert.Contains(t, buf.String(), "token=tok123")
}

func TestDirectMailer(t *testing.T) {
	clock := authtest.NewManualClock(time.Time{})

	t.Run("renders and sends", func(t *testing.T) {
		sender := &recordingSender{}
		before := jobCount(OutcomeSent)

		err := NewDirectMailer(newComposer(t), sender, clock, time.Hour).
			SendPasswordResetEmail(context.Background(), authtest.ValidEmail, "tok123")
		require.NoError(t, err)

		sent := sender.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, authtest.ValidEmail, sent[0].To)
		assert.Contains(t, sent[0].Text, "token=tok123")
		assert.Contains(t, sent[0].Text, "a las 10:00")
		assert.Equal(t, before+1, jobCount(OutcomeSent))
	})

	t.Run("propagates send failure", func(t *testing.T) {
		boom := errors.New("mailgun down")
		before := jobCount(OutcomeFailed)

		err := NewDirectMailer(newComposer(t), &recordingSender{err: boom}, clock, time.Hour).
			SendPasswordResetEmail(context.Background(), authtest.ValidEmail, "tok123")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, before+1, jobCount(OutcomeFailed))
	})
}
