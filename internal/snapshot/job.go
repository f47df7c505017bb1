// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package snapshot

import (
	"context"
	"time"
)

// DailyJob adapts the engine to the scheduler's Job interface.
type DailyJob struct {
	engine *Engine
	loc    *time.Location
}

// NewDailyJob creates the scheduled reconciliation job. loc determines
// which calendar date "today" resolves to when the timer fires.
func NewDailyJob(engine *Engine, loc *time.Location) *DailyJob {
	if loc == nil {
		loc = time.Local
	}
	return &DailyJob{engine: engine, loc: loc}
}

// Name implements scheduler.Job.
func (j *DailyJob) Name() string { return "snapshot" }

// Run implements scheduler.Job.
func (j *DailyJob) Run(ctx context.Context) error {
	_, err := j.engine.Reconcile(ctx, time.Now().In(j.loc), "scheduled")
	return err
}
