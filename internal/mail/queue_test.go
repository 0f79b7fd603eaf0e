// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package mail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uctgym/gymauth/internal/auth/authtest"
	"github.com/uctgym/gymauth/pkg/errutil"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	calls []published
	err   error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.calls = append(c.calls, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestQueuePublisher_PublishesJob(t *testing.T) {
	ch := &fakeChannel{}
	clock := authtest.NewManualClock(time.Time{})
	before := jobCount(OutcomeQueued)

	err := NewQueuePublisher(ch, "", clock, time.Hour).
		SendPasswordResetEmail(context.Background(), authtest.ValidEmail, "tok123")
	require.NoError(t, err)

	require.Len(t, ch.calls, 1)
	call := ch.calls[0]
	assert.Empty(t, call.exchange)
	assert.Equal(t, DefaultQueue, call.key)
	assert.Equal(t, "application/json", call.msg.ContentType)
	assert.Equal(t, amqp.Persistent, call.msg.DeliveryMode)

	var job ResetJob
	require.NoError(t, json.Unmarshal(call.msg.Body, &job))
	assert.Equal(t, ResetJob{
		To:          authtest.ValidEmail,
		Token:       "tok123",
		RequestedAt: authtest.Epoch,
		ExpiresAt:   authtest.Epoch.Add(time.Hour),
	}, job)
	assert.Equal(t, before+1, jobCount(OutcomeQueued))
}

func TestQueuePublisher_PublishFailure(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel/connection is not open")}

	err := NewQueuePublisher(ch, "resets", nil, time.Hour).
		SendPasswordResetEmail(context.Background(), authtest.ValidEmail, "tok123")
	errutil.AssertErrorCode(t, err, "MAIL_PUBLISH_FAILED")
	errutil.AssertErrorContext(t, err, "queue", "resets")
}

func TestResetJob_Valid(t *testing.T) {
	full := ResetJob{To: "a@uct.cl", Token: "t", ExpiresAt: authtest.Epoch}
	assert.True(t, full.valid())

	for name, job := range map[string]ResetJob{
		"no recipient": {Token: "t", ExpiresAt: authtest.Epoch},
		"no token":     {To: "a@uct.cl", ExpiresAt: authtest.Epoch},
		"no expiry":    {To: "a@uct.cl", Token: "t"},
	} {
		assert.False(t, job.valid(), name)
	}
}
