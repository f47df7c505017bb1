// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

// Package metrics provides Prometheus instrumentation for:
// - API endpoint latency and throughput
// - Snapshot reconciliation runs
// - Upstream qBittorrent availability (circuit breaker state)
// - Release announcements
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Snapshot Reconciliation Metrics
	SnapshotRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_runs_total",
			Help: "Total number of snapshot reconciliation runs",
		},
		[]string{"trigger", "outcome"}, // trigger: "scheduled", "startup", "manual"
	)

	SnapshotRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_run_duration_seconds",
			Help:    "Duration of snapshot reconciliation runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_last_success_timestamp",
			Help: "Unix timestamp of the last successful snapshot run",
		},
	)

	// Upstream Source Metrics
	SourceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_requests_total",
			Help: "Total number of requests to upstream sources",
		},
		[]string{"source", "outcome"}, // source: "qbittorrent", "radarr", "telegram"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	// Notifier Metrics
	AnnouncementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "announcements_total",
			Help: "Total number of release announcements sent",
		},
		[]string{"outcome"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSnapshotRun records a reconciliation run and, on success,
// advances the last-success timestamp.
func RecordSnapshotRun(trigger string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	SnapshotRunsTotal.WithLabelValues(trigger, outcome).Inc()
	SnapshotRunDuration.Observe(duration.Seconds())
	if err == nil {
		SnapshotLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordSourceRequest records the outcome of one upstream call.
func RecordSourceRequest(source string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	SourceRequestsTotal.WithLabelValues(source, outcome).Inc()
}

// SetCircuitBreakerState updates the breaker state gauge for a source.
func SetCircuitBreakerState(source string, state float64) {
	CircuitBreakerState.WithLabelValues(source).Set(state)
}

// RecordAnnouncement records a Telegram announcement attempt.
func RecordAnnouncement(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	AnnouncementsTotal.WithLabelValues(outcome).Inc()
}
