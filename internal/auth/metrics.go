// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names used as metric labels and span names.
const (
	OpRegister      = "register"
	OpAuthenticate  = "authenticate"
	OpRefresh       = "refresh"
	OpLogout        = "logout"
	OpRequestReset  = "request_password_reset"
	OpResetPassword = "reset_password"
	OpAuthorize     = "authorize"
	OpSetStatus     = "set_user_status"
)

// OutcomeSuccess labels successful operations. Failures use their error code.
const OutcomeSuccess = "success"

// Operations counts use case executions by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gymauth_auth_operations_total",
		Help: "Total number of authentication use case executions",
	},
	[]string{"operation", "outcome"},
)

// OperationDuration is the histogram for use case execution time.
// Use RegisterMetrics to register this with a Prometheus registry.
var OperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "gymauth_auth_operation_duration_seconds",
		Help:    "Authentication use case duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// AccountLockouts counts accounts locked after repeated failures.
var AccountLockouts = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "gymauth_account_lockouts_total",
		Help: "Total number of account lockouts",
	},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
	reg.MustRegister(OperationDuration)
	reg.MustRegister(AccountLockouts)
}

// RecordOperation increments the execution counter for op.
func RecordOperation(op, outcome string) {
	Operations.WithLabelValues(op, outcome).Inc()
}

// RecordOperationDuration observes how long op took.
func RecordOperationDuration(op string, d time.Duration) {
	OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordLockout increments the lockout counter.
func RecordLockout() {
	AccountLockouts.Inc()
}
