// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

// Package snapshot folds cumulative transfer counters into the
// per-date ledger. Reconcile is the single entry point shared by the
// daily timer, the startup warm-up, and the on-demand HTTP trigger.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yasalmasri/ms-info/internal/database"
	"github.com/yasalmasri/ms-info/internal/logging"
	"github.com/yasalmasri/ms-info/internal/metrics"
	"github.com/yasalmasri/ms-info/internal/models"
)

// Source provides cumulative lifetime transfer counters.
type Source interface {
	FetchAllTime(ctx context.Context) (*models.TransferTotals, error)
}

// Store persists the daily ledger.
type Store interface {
	GetLatestSnapshotBefore(ctx context.Context, date models.Date) (*models.DailySnapshot, error)
	UpsertSnapshot(ctx context.Context, snap *models.DailySnapshot) error
}

// Engine reconciles cumulative counters into per-day deltas.
type Engine struct {
	source Source
	store  Store

	// Serializes concurrent reconciliations (timer, warm-up, HTTP
	// trigger). The upsert itself is atomic at the storage layer; the
	// mutex additionally serializes the read-latest/compute/write
	// sequence so two same-day runs cannot interleave.
	mu sync.Mutex
}

// NewEngine creates a reconciliation engine.
func NewEngine(source Source, store Store) *Engine {
	return &Engine{source: source, store: store}
}

// Reconcile fetches current cumulative totals and upserts the row for
// now's calendar date. The per-day deltas are computed against the
// most recent STRICTLY EARLIER row, so re-running on the same date
// recomputes against the same baseline and simply overwrites — the
// operation is idempotent per date.
//
// Deltas are clamped at zero: if the cumulative counter went backwards
// (client reinstall, stats reset), the day records zero rather than a
// negative delta.
//
// On fetch failure nothing is written and the error is returned; the
// ledger is untouched.
func (e *Engine) Reconcile(ctx context.Context, now time.Time, trigger string) (*models.DailySnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	snap, err := e.reconcile(ctx, now)
	metrics.RecordSnapshotRun(trigger, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("component", "snapshot").
		Str("trigger", trigger).
		Str("date", snap.Date.String()).
		Int64("daily_uploaded_bytes", snap.DailyUploadedBytes).
		Int64("daily_downloaded_bytes", snap.DailyDownloadedBytes).
		Msg("Reconciled daily snapshot")
	return snap, nil
}

func (e *Engine) reconcile(ctx context.Context, now time.Time) (*models.DailySnapshot, error) {
	totals, err := e.source.FetchAllTime(ctx)
	if err != nil {
		return nil, err
	}

	date := models.DateOf(now)

	// Stored ratios are always derived from the stored byte pair, so a
	// row is internally consistent on its own. The client-reported
	// global ratio is a display concern, not ledger state.
	snap := &models.DailySnapshot{
		Date:                 date,
		TotalUploadedBytes:   totals.UploadedBytes,
		TotalDownloadedBytes: totals.DownloadedBytes,
		TotalShareRatio:      models.ShareRatio(totals.UploadedBytes, totals.DownloadedBytes),
	}

	prior, err := e.store.GetLatestSnapshotBefore(ctx, date)
	switch {
	case errors.Is(err, database.ErrNotFound):
		// First run ever: no baseline, the day's deltas are zero.
	case err != nil:
		return nil, fmt.Errorf("failed to load prior snapshot: %w", err)
	default:
		snap.DailyUploadedBytes = clampDelta(totals.UploadedBytes - prior.TotalUploadedBytes)
		snap.DailyDownloadedBytes = clampDelta(totals.DownloadedBytes - prior.TotalDownloadedBytes)
		snap.DailyShareRatio = models.ShareRatio(snap.DailyUploadedBytes, snap.DailyDownloadedBytes)
	}

	if err := e.store.UpsertSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func clampDelta(delta int64) int64 {
	if delta < 0 {
		return 0
	}
	return delta
}
