// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

// Package sweeper periodically deletes expired refresh and reset tokens.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/pkg/errutil"
)

// DefaultInterval is how often expired tokens are swept.
const DefaultInterval = time.Hour

// TokensSwept counts expired tokens removed by the sweeper.
var TokensSwept = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "gymauth_tokens_swept_total",
		Help: "Total number of expired tokens removed",
	},
)

// SweepFailures counts sweep passes that returned an error.
var SweepFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "gymauth_token_sweep_failures_total",
		Help: "Total number of failed token sweep passes",
	},
)

// RegisterMetrics registers sweeper metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(TokensSwept)
	reg.MustRegister(SweepFailures)
}

// Cleaner removes tokens that expired at or before now.
// auth.TokenRepository implementations satisfy it.
type Cleaner interface {
	CleanExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper runs Cleaner on an interval.
type Sweeper struct {
	cleaner  Cleaner
	interval time.Duration
	clock    auth.Clock
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock sets the clock used to decide expiry.
func WithClock(c auth.Clock) Option {
	return func(s *Sweeper) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

// New creates a Sweeper. A non-positive interval means DefaultInterval.
func New(cleaner Cleaner, interval time.Duration, opts ...Option) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Sweeper{
		cleaner:  cleaner,
		interval: interval,
		clock:    auth.SystemClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce performs a single sweep and returns the number of tokens removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	removed, err := s.cleaner.CleanExpiredTokens(ctx, now)
	if err != nil {
		SweepFailures.Inc()
		return 0, oops.Code("TOKEN_SWEEP_FAILED").With("now", now).Wrap(err)
	}
	TokensSwept.Add(float64(removed))
	if removed > 0 {
		s.logger.InfoContext(ctx, "swept expired tokens", "count", removed)
	} else {
		s.logger.DebugContext(ctx, "no expired tokens to sweep")
	}
	return removed, nil
}

// Start sweeps once immediately and then every interval until Stop or
// until ctx is done. Calling Start on a running Sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		errutil.LogErrorContext(ctx, s.logger, "token sweep failed", err)
	}
}
