// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package mail

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/oops"
	"golang.org/x/time/rate"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/pkg/errutil"
)

// WorkerConfig throttles Worker. A zero RatePerSecond means unlimited.
type WorkerConfig struct {
	RatePerSecond float64
	Burst         int
}

// Worker drains reset jobs from a queue and sends them.
//
// Malformed jobs and jobs whose token has already expired are dropped.
// Send failures are requeued.
type Worker struct {
	composer *Composer
	sender   Sender
	limiter  *rate.Limiter
	clock    auth.Clock
	logger   *slog.Logger
}

// NewWorker creates a Worker.
func NewWorker(composer *Composer, sender Sender, cfg WorkerConfig, clock auth.Clock, logger *slog.Logger) *Worker {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	if clock == nil {
		clock = auth.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		composer: composer,
		sender:   sender,
		limiter:  rate.NewLimiter(limit, burst),
		clock:    clock,
		logger:   logger,
	}
}

// Run handles deliveries until ctx is done or the channel closes.
// A closed channel means the broker connection was lost and is an error.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return oops.Code("QUEUE_CLOSED").Errorf("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var job ResetJob
	if err := json.Unmarshal(d.Body, &job); err != nil || !job.valid() {
		w.logger.WarnContext(ctx, "dropping malformed reset job",
			"delivery_tag", d.DeliveryTag,
			"error", err)
		w.settle(ctx, d, OutcomeDropped, false)
		return
	}

	if !w.clock.Now().Before(job.ExpiresAt) {
		w.logger.InfoContext(ctx, "dropping expired reset job",
			"to", job.To,
			"expires_at", job.ExpiresAt)
		w.settle(ctx, d, OutcomeExpired, false)
		return
	}

	if err := w.limiter.Wait(ctx); err != nil {
		// Shutting down; leave the job for the next consumer.
		w.nack(ctx, d, true)
		return
	}

	msg, err := w.composer.PasswordReset(job.To, job.Token, job.ExpiresAt)
	if err != nil {
		errutil.LogErrorContext(ctx, w.logger, "render reset email failed", err)
		w.settle(ctx, d, OutcomeDropped, false)
		return
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		errutil.LogErrorContext(ctx, w.logger, "send reset email failed", err)
		w.settle(ctx, d, OutcomeFailed, true)
		return
	}

	if err := d.Ack(false); err != nil {
		errutil.LogErrorContext(ctx, w.logger, "ack reset job failed", oops.Wrap(err))
	}
	RecordJob(OutcomeSent)
	w.logger.InfoContext(ctx, "reset email sent", "to", job.To)
}

// settle nacks d and records outcome.
func (w *Worker) settle(ctx context.Context, d amqp.Delivery, outcome string, requeue bool) {
	w.nack(ctx, d, requeue)
	RecordJob(outcome)
}

func (w *Worker) nack(ctx context.Context, d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		errutil.LogErrorContext(ctx, w.logger, "nack reset job failed", oops.With("requeue", requeue).Wrap(err))
	}
}
