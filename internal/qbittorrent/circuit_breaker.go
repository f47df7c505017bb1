// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package qbittorrent

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/yasalmasri/ms-info/internal/config"
	"github.com/yasalmasri/ms-info/internal/logging"
	"github.com/yasalmasri/ms-info/internal/metrics"
	"github.com/yasalmasri/ms-info/internal/models"
)

// CircuitBreakerClient wraps Client with the circuit breaker pattern
// so a flapping or down qBittorrent instance fails fast instead of
// stacking up slow requests behind the scheduler and API handlers.
//
// The breaker uses real time for its interval and timeout windows.
// Unit tests should exercise the wrapped Client directly.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient creates a qBittorrent client with circuit
// breaker protection:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerClient(cfg *config.QBittorrentConfig) *CircuitBreakerClient {
	client := NewClient(cfg)
	cbName := "qbittorrent"

	metrics.SetCircuitBreakerState(cbName, 0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("[CIRCUIT BREAKER] State transition")
			metrics.SetCircuitBreakerState(name, stateToFloat(to))
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: cbName}
}

// execute wraps an API call with circuit breaker protection.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	metrics.RecordSourceRequest(cbc.name, err)
	return result, err
}

func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// FetchTotals retrieves session transfer counters with circuit breaker protection.
func (cbc *CircuitBreakerClient) FetchTotals(ctx context.Context) (*models.TransferTotals, error) {
	return castResult[models.TransferTotals](cbc.execute(func() (interface{}, error) {
		return cbc.client.FetchTotals(ctx)
	}))
}

// FetchAllTime retrieves lifetime transfer counters with circuit breaker protection.
func (cbc *CircuitBreakerClient) FetchAllTime(ctx context.Context) (*models.TransferTotals, error) {
	return castResult[models.TransferTotals](cbc.execute(func() (interface{}, error) {
		return cbc.client.FetchAllTime(ctx)
	}))
}

// Ping verifies connectivity with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}
