// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

// Package scheduler runs background jobs once per day at a configured
// wall-clock time.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DailyTime is a parsed HH:MM wall-clock time.
type DailyTime struct {
	Hour   int // 0-23
	Minute int // 0-59
}

// ParseDailyTime parses an "HH:MM" string (24-hour clock).
//
// Examples:
//   - "00:01" - one minute past midnight
//   - "09:30" - half past nine in the morning
func ParseDailyTime(s string) (DailyTime, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return DailyTime{}, fmt.Errorf("daily time must be HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return DailyTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return DailyTime{}, fmt.Errorf("invalid minute in %q", s)
	}
	return DailyTime{Hour: hour, Minute: minute}, nil
}

// String returns the time in HH:MM form.
func (d DailyTime) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

// Next calculates the next occurrence of the wall-clock time strictly
// after the given instant. If loc is nil, UTC is used.
//
// The fire time is constructed with time.Date in the target location, so
// DST transitions resolve the way the wall clock does: a skipped time
// rolls forward and a repeated time fires on the first occurrence.
func (d DailyTime) Next(after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := after.In(loc)

	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(after) {
		next = time.Date(t.Year(), t.Month(), t.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return next
}
