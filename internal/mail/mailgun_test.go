// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package mail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uctgym/gymauth/pkg/errutil"
)

type mailgunRequest struct {
	path    string
	from    string
	to      string
	subject string
	text    string
	html    string
}

func fakeMailgun(t *testing.T, status int) (*httptest.Server, func() []mailgunRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []mailgunRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			_ = r.ParseForm()
		}
		mu.Lock()
		requests = append(requests, mailgunRequest{
			path:    r.URL.Path,
			from:    r.FormValue("from"),
			to:      r.FormValue("to"),
			subject: r.FormValue("subject"),
			text:    r.FormValue("text"),
			html:    r.FormValue("html"),
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"id":"<20260302.1@sandbox.uct.cl>","message":"Queued. Thank you."}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"upstream unavailable"}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []mailgunRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]mailgunRequest(nil), requests...)
	}
}

func TestNewMailgunSender_RequiresCredentials(t *testing.T) {
	_, err := NewMailgunSender(MailgunConfig{Domain: "sandbox.uct.cl"})
	errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
}

func TestMailgunSender_Send(t *testing.T) {
	srv, requests := fakeMailgun(t, http.StatusOK)
	sender, err := NewMailgunSender(MailgunConfig{
		Domain:  "sandbox.uct.cl",
		APIKey:  "key-test",
		From:    "Gimnasio UCT <no-reply@uct.cl>",
		APIBase: srv.URL + "/v3",
	})
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{
		To:      "ana.perez@alu.uct.cl",
		Subject: ResetSubject,
		Text:    "texto",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)

	got := requests()
	require.Len(t, got, 1)
	assert.True(t, strings.HasSuffix(got[0].path, "/sandbox.uct.cl/messages"), got[0].path)
	assert.Equal(t, "Gimnasio UCT <no-reply@uct.cl>", got[0].from)
	assert.Equal(t, "ana.perez@alu.uct.cl", got[0].to)
	assert.Equal(t, ResetSubject, got[0].subject)
	assert.Equal(t, "texto", got[0].text)
	assert.Equal(t, "<p>html</p>", got[0].html)
}

func TestMailgunSender_SendFailure(t *testing.T) {
	srv, _ := fakeMailgun(t, http.StatusServiceUnavailable)
	sender, err := NewMailgunSender(MailgunConfig{
		Domain:  "sandbox.uct.cl",
		APIKey:  "key-test",
		From:    "no-reply@uct.cl",
		APIBase: srv.URL + "/v3",
	})
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: "ana.perez@alu.uct.cl", Subject: "s", Text: "t"})
	errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
	errutil.AssertErrorContext(t, err, "provider", "mailgun")
}
