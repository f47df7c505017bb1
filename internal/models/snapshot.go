// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

// Package models defines the data structures shared by the store, the
// reconciliation engine, and the HTTP surface.
package models

import (
	"fmt"
	"time"
)

// dateLayout is the wire and storage format for calendar dates.
const dateLayout = "2006-01-02"

// Date is a timezone-naive calendar date. It is the natural key of the
// daily ledger: one DailySnapshot row exists per Date.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a point in time to its calendar date. The date is taken
// in t's own location, so "today" follows the caller's clock.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

// String returns the date in YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// Equal reports whether d and other are the same calendar date.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return Date{d.AddDate(0, 0, n)}
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date literal %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DailySnapshot is one row of the transfer ledger: the cumulative lifetime
// counters observed on a calendar date plus the deltas versus the previous
// date's totals.
//
// Invariants maintained by the reconciliation engine and the store:
//   - at most one row per Date (UNIQUE constraint in the store)
//   - daily deltas are never negative, even across upstream counter resets
//   - ratios are derived from their byte pairs, never stored independently
type DailySnapshot struct {
	Date                 Date    `json:"date"`
	TotalUploadedBytes   int64   `json:"total_uploaded_bytes"`
	TotalDownloadedBytes int64   `json:"total_downloaded_bytes"`
	TotalShareRatio      float64 `json:"total_share_ratio"`
	DailyUploadedBytes   int64   `json:"daily_uploaded_bytes"`
	DailyDownloadedBytes int64   `json:"daily_downloaded_bytes"`
	DailyShareRatio      float64 `json:"daily_share_ratio"`
}

// TransferTotals holds cumulative lifetime counters as reported by the
// torrent client. ReportedRatio carries the client's own ratio figure when
// the endpoint provides one; it is zero otherwise.
type TransferTotals struct {
	UploadedBytes   int64
	DownloadedBytes int64
	ReportedRatio   float64
}

// ShareRatio returns the client-reported ratio when present, falling back
// to the computed uploaded/downloaded ratio.
func (t TransferTotals) ShareRatio() float64 {
	if t.ReportedRatio > 0 {
		return t.ReportedRatio
	}
	return ShareRatio(t.UploadedBytes, t.DownloadedBytes)
}

// ShareRatio computes uploaded/downloaded, defined as 0.0 when downloaded
// is zero so a fresh client never divides by zero.
func ShareRatio(uploaded, downloaded int64) float64 {
	if downloaded <= 0 {
		return 0.0
	}
	return float64(uploaded) / float64(downloaded)
}
