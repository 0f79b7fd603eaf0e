// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package mail

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/oops"

	"github.com/uctgym/gymauth/internal/auth"
)

// DefaultQueue is the queue reset jobs are published to.
const DefaultQueue = "gymauth.password_reset"

// ResetJob is the queued form of a password reset email.
type ResetJob struct {
	To          string    `json:"to"`
	Token       string    `json:"token"`
	RequestedAt time.Time `json:"requested_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (j ResetJob) valid() bool {
	return j.To != "" && j.Token != "" && !j.ExpiresAt.IsZero()
}

// publisher is the part of *amqp.Channel used to enqueue jobs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueuePublisher enqueues reset jobs for Worker instead of sending mail
// in the request path.
type QueuePublisher struct {
	ch    publisher
	queue string
	clock auth.Clock
	ttl   time.Duration
}

// NewQueuePublisher creates a QueuePublisher. ttl is the reset token
// lifetime; jobs past it are discarded by the worker.
func NewQueuePublisher(ch publisher, queue string, clock auth.Clock, ttl time.Duration) *QueuePublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	if clock == nil {
		clock = auth.SystemClock{}
	}
	return &QueuePublisher{ch: ch, queue: queue, clock: clock, ttl: ttl}
}

// SendPasswordResetEmail implements auth.ResetMailer.
func (p *QueuePublisher) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	now := p.clock.Now()
	body, err := json.Marshal(ResetJob{To: to, Token: token, RequestedAt: now, ExpiresAt: now.Add(p.ttl)})
	if err != nil {
		return oops.Code("MAIL_ENCODE_FAILED").Wrap(err)
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		Type:         "password_reset",
		Body:         body,
	})
	if err != nil {
		return oops.Code("MAIL_PUBLISH_FAILED").With("queue", p.queue).Wrap(err)
	}
	RecordJob(OutcomeQueued)
	return nil
}

// Queue owns an AMQP connection and channel bound to one durable queue.
type Queue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	name string
}

// DialQueue connects to url and declares the durable queue name.
func DialQueue(url, name string) (*Queue, error) {
	if name == "" {
		name = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, oops.Code("QUEUE_CONNECT_FAILED").With("queue", name).Wrap(err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close() //nolint:errcheck // channel error takes precedence
		return nil, oops.Code("QUEUE_CONNECT_FAILED").With("operation", "open channel").Wrap(err)
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		_ = ch.Close()   //nolint:errcheck // declare error takes precedence
		_ = conn.Close() //nolint:errcheck // declare error takes precedence
		return nil, oops.Code("QUEUE_DECLARE_FAILED").With("queue", name).Wrap(err)
	}
	return &Queue{conn: conn, ch: ch, name: name}, nil
}

// Name returns the declared queue name.
func (q *Queue) Name() string { return q.name }

// Publisher returns a QueuePublisher writing to this queue.
func (q *Queue) Publisher(clock auth.Clock, ttl time.Duration) *QueuePublisher {
	return NewQueuePublisher(q.ch, q.name, clock, ttl)
}

// Consume starts a manual-ack consumer with the given prefetch.
func (q *Queue) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	if err := q.ch.Qos(prefetch, 0, false); err != nil {
		return nil, oops.Code("QUEUE_CONSUME_FAILED").With("operation", "set qos").Wrap(err)
	}
	deliveries, err := q.ch.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		return nil, oops.Code("QUEUE_CONSUME_FAILED").With("queue", q.name).Wrap(err)
	}
	return deliveries, nil
}

// Close closes the channel and connection.
func (q *Queue) Close() error {
	chErr := q.ch.Close()
	connErr := q.conn.Close()
	if chErr != nil || connErr != nil {
		return oops.Code("QUEUE_CLOSE_FAILED").Errorf("channel: %v; connection: %v", chErr, connErr)
	}
	return nil
}

var _ auth.ResetMailer = (*QueuePublisher)(nil)
