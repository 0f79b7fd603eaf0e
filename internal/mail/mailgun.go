// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package mail

import (
	"context"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/samber/oops"
)

// DefaultSendTimeout bounds a single Mailgun API call.
const DefaultSendTimeout = 10 * time.Second

// MailgunConfig configures MailgunSender. APIBase overrides the API
// endpoint, e.g. mailgun.APIBaseEU.
type MailgunConfig struct {
	Domain  string
	APIKey  string
	From    string
	APIBase string
	Timeout time.Duration
}

// MailgunSender sends messages through the Mailgun HTTP API.
type MailgunSender struct {
	client  *mailgun.MailgunImpl
	from    string
	timeout time.Duration
}

// NewMailgunSender validates cfg and creates a client.
func NewMailgunSender(cfg MailgunConfig) (*MailgunSender, error) {
	if cfg.Domain == "" || cfg.APIKey == "" || cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").
			With("domain", cfg.Domain).
			Errorf("mailgun domain, api key and sender are required")
	}
	client := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		client.SetAPIBase(cfg.APIBase)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &MailgunSender{client: client, from: cfg.From, timeout: timeout}, nil
}

// Send implements Sender.
func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	m := s.client.NewMessage(s.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, _, err := s.client.Send(ctx, m); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("provider", "mailgun").
			With("subject", msg.Subject).
			Wrap(err)
	}
	return nil
}

var _ Sender = (*MailgunSender)(nil)
