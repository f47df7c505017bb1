// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/yasalmasri/ms-info/internal/logging"
)

// Job is a unit of daily background work. Run must be safe to invoke
// repeatedly and concurrently with on-demand triggers from the HTTP
// surface; any returned error is logged and discarded by the scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Daily fires a Job once per day at a fixed wall-clock time, plus one
// warm-up run at startup so a freshly started process has current data
// without waiting for the next boundary.
//
// Job failures never escape the scheduler: each invocation's error is
// logged and swallowed, and the next fire is always scheduled. Daily
// implements suture.Service.
type Daily struct {
	job        Job
	at         DailyTime
	loc        *time.Location
	warmup     bool
	jobTimeout time.Duration
	logger     zerolog.Logger

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// Option configures a Daily scheduler.
type Option func(*Daily)

// WithoutWarmup disables the startup run.
func WithoutWarmup() Option {
	return func(d *Daily) { d.warmup = false }
}

// WithJobTimeout bounds a single job invocation. Zero means no bound
// beyond the scheduler context.
func WithJobTimeout(timeout time.Duration) Option {
	return func(d *Daily) { d.jobTimeout = timeout }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Daily) { d.now = now }
}

// NewDaily creates a scheduler that runs job every day at the given time.
// A nil loc pins the schedule to UTC; callers pass the location resolved
// from configuration at startup.
func NewDaily(job Job, at DailyTime, loc *time.Location, opts ...Option) *Daily {
	if loc == nil {
		loc = time.UTC
	}
	d := &Daily{
		job:    job,
		at:     at,
		loc:    loc,
		warmup: true,
		logger: logging.With().Str("component", "scheduler").Str("job", job.Name()).Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Serve implements suture.Service. It blocks until ctx is canceled,
// firing the job at each daily boundary.
func (d *Daily) Serve(ctx context.Context) error {
	d.logger.Info().Str("at", d.at.String()).Str("timezone", d.loc.String()).Msg("Daily schedule started")

	if d.warmup {
		d.invoke(ctx, "warmup")
	}

	for {
		next := d.at.Next(d.now(), d.loc)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			d.logger.Info().Msg("Daily schedule stopped")
			return ctx.Err()
		case <-timer.C:
			d.invoke(ctx, "scheduled")
		}
	}
}

// String implements fmt.Stringer; suture uses it to identify the service.
func (d *Daily) String() string {
	return "daily-" + d.job.Name()
}

// invoke runs the job once, logging and discarding any error. The error
// never escapes the scheduler's invocation boundary.
func (d *Daily) invoke(ctx context.Context, trigger string) {
	runCtx := ctx
	if d.jobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.jobTimeout)
		defer cancel()
	}

	start := d.now()
	if err := d.job.Run(runCtx); err != nil {
		d.logger.Error().Err(err).Str("trigger", trigger).Msg("Job run failed")
		return
	}
	d.logger.Info().Str("trigger", trigger).Dur("took", d.now().Sub(start)).Msg("Job run completed")
}
