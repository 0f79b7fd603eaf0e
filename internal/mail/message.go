// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

// Package mail delivers password reset messages, either directly through
// Mailgun or through a RabbitMQ queue drained by Worker.
package mail

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
	"time"

	"github.com/samber/oops"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// ResetSubject is the subject line of password reset messages.
const ResetSubject = "Restablece tu contraseña del Gimnasio UCT"

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// resetData is the template input for password reset messages.
type resetData struct {
	Email         string
	ResetURL      string
	ExpiresAtText string
}

// Composer renders password reset messages with links under a base URL.
type Composer struct {
	baseURL  *url.URL
	location *time.Location
	text     *texttemplate.Template
	html     *htmltemplate.Template
}

// NewComposer parses the embedded templates. resetURL is the page that
// accepts the token; the token is added as the "token" query parameter.
// Expiry times are shown in loc, or UTC when loc is nil.
func NewComposer(resetURL string, loc *time.Location) (*Composer, error) {
	base, err := url.Parse(resetURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").
			With("reset_url", resetURL).
			Errorf("reset url must be absolute")
	}
	if loc == nil {
		loc = time.UTC
	}
	text, err := texttemplate.ParseFS(templatesFS, "templates/password_reset.txt.tmpl")
	if err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_INVALID").With("template", "text").Wrap(err)
	}
	html, err := htmltemplate.ParseFS(templatesFS, "templates/password_reset.html.tmpl")
	if err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_INVALID").With("template", "html").Wrap(err)
	}
	return &Composer{baseURL: base, location: loc, text: text, html: html}, nil
}

// ResetLink returns the reset page URL carrying token.
func (c *Composer) ResetLink(token string) string {
	u := *c.baseURL
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// PasswordReset renders the reset message for to.
func (c *Composer) PasswordReset(to, token string, expiresAt time.Time) (Message, error) {
	data := resetData{
		Email:         to,
		ResetURL:      c.ResetLink(token),
		ExpiresAtText: expiresAt.In(c.location).Format("02-01-2006 a las 15:04"),
	}

	var text, html bytes.Buffer
	if err := c.text.Execute(&text, data); err != nil {
		return Message{}, oops.Code("MAIL_RENDER_FAILED").With("template", "text").Wrap(err)
	}
	if err := c.html.Execute(&html, data); err != nil {
		return Message{}, oops.Code("MAIL_RENDER_FAILED").With("template", "html").Wrap(err)
	}
	return Message{To: to, Subject: ResetSubject, Text: text.String(), HTML: html.String()}, nil
}
