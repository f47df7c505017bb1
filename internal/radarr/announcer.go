// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package radarr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yasalmasri/ms-info/internal/logging"
	"github.com/yasalmasri/ms-info/internal/metrics"
	"github.com/yasalmasri/ms-info/internal/models"
	"github.com/yasalmasri/ms-info/internal/notify"
)

// CalendarSource lists upcoming movie releases.
type CalendarSource interface {
	Calendar(ctx context.Context) ([]Movie, error)
	BaseURL() string
}

// Notifier delivers a formatted message.
type Notifier interface {
	SendMarkdownV2(ctx context.Context, text string) error
}

// Announcer is the daily job that posts today's digital releases to the
// chat. Days with no releases are silent: no message is sent.
type Announcer struct {
	source   CalendarSource
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
}

// NewAnnouncer creates the release announcer job. loc determines which
// calendar date counts as "today" when matching release dates.
func NewAnnouncer(source CalendarSource, notifier Notifier, loc *time.Location) *Announcer {
	if loc == nil {
		loc = time.Local
	}
	return &Announcer{
		source:   source,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
	}
}

// Name implements scheduler.Job.
func (a *Announcer) Name() string { return "release-announcer" }

// Run implements scheduler.Job. It fetches the calendar, filters to
// titles whose digital release falls on today's date, and posts one
// MarkdownV2 message linking each title to its Radarr page.
func (a *Announcer) Run(ctx context.Context) error {
	movies, err := a.source.Calendar(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch release calendar: %w", err)
	}

	today := models.DateOf(a.now().In(a.loc))
	lines := a.releaseLines(movies, today)

	logging.Debug().
		Str("component", "announcer").
		Int("calendar_entries", len(movies)).
		Int("releases_today", len(lines)).
		Msg("Checked release calendar")

	if len(lines) == 0 {
		return nil
	}

	text := "Today's Releases:" + strings.Join(lines, "")
	err = a.notifier.SendMarkdownV2(ctx, text)
	metrics.RecordAnnouncement(err)
	if err != nil {
		return fmt.Errorf("failed to announce releases: %w", err)
	}

	logging.Info().
		Str("component", "announcer").
		Int("releases", len(lines)).
		Msg("Announced today's releases")
	return nil
}

// releaseLines renders one message line per title released today.
func (a *Announcer) releaseLines(movies []Movie, today models.Date) []string {
	var lines []string
	for _, movie := range movies {
		if movie.DigitalRelease == nil {
			continue
		}
		release := models.DateOf(movie.DigitalRelease.In(a.loc))
		if !release.Equal(today) {
			continue
		}
		lines = append(lines, fmt.Sprintf("\r\n    \\- [%s](%s/movie/%d)",
			notify.EscapeMarkdownV2(movie.Title), a.source.BaseURL(), movie.TmdbID))
	}
	return lines
}
