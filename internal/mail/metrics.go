// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package mail

import "github.com/prometheus/client_golang/prometheus"

// Job outcomes.
const (
	OutcomeQueued  = "queued"
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
	OutcomeExpired = "expired"
)

// Jobs counts reset mail jobs by outcome.
var Jobs = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gymauth_mail_jobs_total",
		Help: "Total number of password reset mail jobs by outcome",
	},
	[]string{"outcome"},
)

// RegisterMetrics registers mail metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Jobs)
}

// RecordJob increments the job counter for outcome.
func RecordJob(outcome string) {
	Jobs.WithLabelValues(outcome).Inc()
}
