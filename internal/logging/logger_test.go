// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGlobalLoggerCapture(t *testing.T) {
	// Swap in a buffer-backed logger, restore the previous one after.
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))

	Info().Str("source", "qbittorrent").Msg("Snapshot stored")
	out := buf.String()
	if !strings.Contains(out, `"source":"qbittorrent"`) {
		t.Errorf("output missing field: %s", out)
	}
	if !strings.Contains(out, "Snapshot stored") {
		t.Errorf("output missing message: %s", out)
	}

	buf.Reset()
	Err(errors.New("connection refused")).Msg("Fetch failed")
	out = buf.String()
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("Err output missing error level: %s", out)
	}
	if !strings.Contains(out, "connection refused") {
		t.Errorf("Err output missing error detail: %s", out)
	}
}

func TestInitConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "console", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Debug().Msg("console line")
	if !strings.Contains(buf.String(), "console line") {
		t.Errorf("console output missing message: %s", buf.String())
	}
}
