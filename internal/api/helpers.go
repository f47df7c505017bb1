// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package api

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/yasalmasri/ms-info/internal/logging"
	"github.com/yasalmasri/ms-info/internal/models"
)

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError sends a JSON error payload.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

// sanitizeLogValue removes control characters from strings so untrusted
// request values cannot forge log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

const bytesPerGiB = 1024 * 1024 * 1024

// HumanSize converts a byte count to a two-decimal figure in GB, or in
// TB once the value reaches 1024 GB.
func HumanSize(bytes int64) (float64, string) {
	gb := float64(bytes) / bytesPerGiB
	if gb >= 1024.0 {
		return roundTo2(gb / 1024.0), "TB"
	}
	return roundTo2(gb), "GB"
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// transferReport renders totals as the human-readable wire payload.
func transferReport(totals *models.TransferTotals) models.TransferReport {
	upVal, upUnit := HumanSize(totals.UploadedBytes)
	dlVal, dlUnit := HumanSize(totals.DownloadedBytes)
	return models.TransferReport{
		Uploaded:       upVal,
		UploadedUnit:   upUnit,
		Downloaded:     dlVal,
		DownloadedUnit: dlUnit,
		ShareRatio:     totals.ShareRatio(),
	}
}
