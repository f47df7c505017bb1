// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package models

import "time"

// StatusResponse acknowledges a successful mutation.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse carries an error message to the caller.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus is the /health payload. Status is "ok" when the database is
// reachable and "degraded" otherwise; source connectivity is informational.
type HealthStatus struct {
	Status            string     `json:"status"`
	Version           string     `json:"version"`
	DatabaseConnected bool       `json:"database_connected"`
	SourceConnected   bool       `json:"source_connected"`
	LastSnapshotTime  *time.Time `json:"last_snapshot_time,omitempty"`
	UptimeSeconds     float64    `json:"uptime_seconds"`
}

// TransferReport is the human-readable form of live transfer totals served
// by the current and alltime endpoints.
type TransferReport struct {
	Uploaded       float64 `json:"uploaded"`
	UploadedUnit   string  `json:"uploaded_unit"`
	Downloaded     float64 `json:"downloaded"`
	DownloadedUnit string  `json:"downloaded_unit"`
	ShareRatio     float64 `json:"share_ratio"`
}
