// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package radarr

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubCalendar struct {
	movies []Movie
	err    error
}

func (s *stubCalendar) Calendar(ctx context.Context) ([]Movie, error) {
	return s.movies, s.err
}

func (s *stubCalendar) BaseURL() string { return "http://radarr.local:7878" }

type recordingNotifier struct {
	messages []string
	err      error
}

func (r *recordingNotifier) SendMarkdownV2(ctx context.Context, text string) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, text)
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }

func newTestAnnouncer(source *stubCalendar, notifier *recordingNotifier, now time.Time) *Announcer {
	a := NewAnnouncer(source, notifier, time.UTC)
	a.now = func() time.Time { return now }
	return a
}

func TestAnnouncerPostsTodaysReleases(t *testing.T) {
	now := time.Date(2026, 8, 29, 0, 15, 0, 0, time.UTC)
	source := &stubCalendar{movies: []Movie{
		{Title: "Dune: Part Three", TmdbID: 100, DigitalRelease: timePtr(time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC))},
		{Title: "Tomorrow's Movie", TmdbID: 200, DigitalRelease: timePtr(time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC))},
		{Title: "No Date Yet", TmdbID: 300},
	}}
	notifier := &recordingNotifier{}

	if err := newTestAnnouncer(source, notifier, now).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(notifier.messages) != 1 {
		t.Fatalf("messages sent = %d, want 1", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if !strings.HasPrefix(msg, "Today's Releases:") {
		t.Errorf("message %q missing header", msg)
	}
	if !strings.Contains(msg, "[Dune: Part Three](http://radarr.local:7878/movie/100)") {
		t.Errorf("message %q missing escaped today's release link", msg)
	}
	if strings.Contains(msg, "Tomorrow's Movie") || strings.Contains(msg, "No Date Yet") {
		t.Errorf("message %q includes releases not due today", msg)
	}
}

func TestAnnouncerSilentWhenNoReleases(t *testing.T) {
	now := time.Date(2026, 8, 29, 0, 15, 0, 0, time.UTC)
	source := &stubCalendar{movies: []Movie{
		{Title: "Next Week", TmdbID: 1, DigitalRelease: timePtr(time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC))},
	}}
	notifier := &recordingNotifier{}

	if err := newTestAnnouncer(source, notifier, now).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("messages sent = %d, want 0 on a quiet day", len(notifier.messages))
	}
}

func TestAnnouncerCalendarFailure(t *testing.T) {
	source := &stubCalendar{err: errors.New("radarr down")}
	notifier := &recordingNotifier{}

	err := newTestAnnouncer(source, notifier, time.Now()).Run(context.Background())
	if err == nil {
		t.Fatal("Run succeeded, want error")
	}
	if len(notifier.messages) != 0 {
		t.Errorf("messages sent = %d, want 0 after calendar failure", len(notifier.messages))
	}
}

func TestAnnouncerReleaseDateMatchedInLocalZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("failed to load Europe/Berlin: %v", err)
	}

	// 23:30 UTC Aug 28 is already Aug 29 in Berlin.
	release := time.Date(2026, 8, 28, 23, 30, 0, 0, time.UTC)
	now := time.Date(2026, 8, 29, 0, 15, 0, 0, berlin)

	source := &stubCalendar{movies: []Movie{
		{Title: "Midnight Premiere", TmdbID: 7, DigitalRelease: timePtr(release)},
	}}
	notifier := &recordingNotifier{}

	a := NewAnnouncer(source, notifier, berlin)
	a.now = func() time.Time { return now }

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("messages sent = %d, want 1 (release date taken in configured zone)", len(notifier.messages))
	}
}
