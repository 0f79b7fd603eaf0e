// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uctgym/gymauth/internal/auth/authtest"
	"github.com/uctgym/gymauth/internal/observability"
	"github.com/uctgym/gymauth/pkg/errutil"
)

// serveDeps wires memory stores and a fake observability server whose
// factory arguments are captured.
func serveDeps(stores *memoryStores, srv *fakeObservabilityServer, gotAddr *string, gotRegistrars *int) *Deps {
	deps := userDeps(stores)
	deps.ObservabilityServerFactory = func(addr, _ string, _ observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer {
		*gotAddr = addr
		*gotRegistrars = len(registrars)
		srv.addr = addr
		return srv
	}
	return deps
}

func TestServe_RunsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores := newMemoryStores()
	require.NoError(t, stores.tokens.SaveResetToken(ctx, "1", "stale", authtest.Epoch.Add(-time.Second)))

	srv := &fakeObservabilityServer{errs: make(chan error), onStart: cancel}
	var addr string
	var registrars int

	_, stderr, err := executeCommand(ctx, t, serveDeps(stores, srv, &addr, &registrars), "serve")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", addr)
	assert.Equal(t, 3, registrars, "auth, mail and sweeper metrics")
	assert.True(t, srv.started)
	assert.True(t, srv.stopped)
	assert.Equal(t, 0, stores.tokens.ResetTokens("1"), "first sweep runs at startup")
	assert.Equal(t, 1, stores.closed)
	assert.Contains(t, stderr, "starting gymauth")
	assert.Contains(t, stderr, "shutting down")
}

func TestServe_MetricsAddrFlag(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &fakeObservabilityServer{errs: make(chan error), onStart: cancel}
	var addr string
	var registrars int

	_, _, err := executeCommand(ctx, t, serveDeps(newMemoryStores(), srv, &addr, &registrars),
		"serve", "--metrics-addr", "127.0.0.1:9999")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", addr)
}

func TestServe_MetricsDisabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := &fakeObservabilityServer{}
	var addr string
	var registrars int

	_, _, err := executeCommand(ctx, t, serveDeps(newMemoryStores(), srv, &addr, &registrars),
		"serve", "--metrics-addr", "")
	require.NoError(t, err)
	assert.False(t, srv.started)
}

func TestServe_ObservabilityServerFailure(t *testing.T) {
	errs := make(chan error, 1)
	errs <- errors.New("listener closed")
	srv := &fakeObservabilityServer{errs: errs}
	var addr string
	var registrars int

	_, _, err := executeCommand(context.Background(), t, serveDeps(newMemoryStores(), srv, &addr, &registrars), "serve")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "OBSERVABILITY_FAILED")
	assert.True(t, srv.stopped)
}

func TestServe_ObservabilityStartFailure(t *testing.T) {
	srv := &fakeObservabilityServer{startErr: oops.Code("OBSERVABILITY_LISTEN_FAILED").Errorf("address in use")}
	var addr string
	var registrars int

	_, _, err := executeCommand(context.Background(), t, serveDeps(newMemoryStores(), srv, &addr, &registrars), "serve")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "OBSERVABILITY_LISTEN_FAILED")
	assert.False(t, srv.stopped)
}

func TestServe_StoresFailure(t *testing.T) {
	deps := userDeps(newMemoryStores())
	deps.StoresFactory = nil
	t.Setenv("GYMAUTH_DATABASE_URL", "")

	_, _, err := executeCommand(context.Background(), t, deps, "serve")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}
