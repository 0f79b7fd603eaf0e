// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

// Package authtest provides test helpers for the auth package.
package authtest

import (
	"sync"
	"time"

	"github.com/uctgym/gymauth/internal/auth"
)

// Epoch is the default start time of a ManualClock.
var Epoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ManualClock is a Clock that only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock reading start, or Epoch if start is zero.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = Epoch
	}
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

var _ auth.Clock = (*ManualClock)(nil)
