// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

// Package api exposes the HTTP reporting surface: health, live totals
// fetched through to the torrent client, the stored daily ledger, and
// an on-demand reconciliation trigger.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yasalmasri/ms-info/internal/config"
	"github.com/yasalmasri/ms-info/internal/logging"
	"github.com/yasalmasri/ms-info/internal/models"
	"github.com/yasalmasri/ms-info/internal/qbittorrent"
)

// SourceName is the single counter source this service reads from.
const SourceName = "qbittorrent"

// Source is the live counter source (fetch-through, no persistence).
type Source interface {
	FetchTotals(ctx context.Context) (*models.TransferTotals, error)
	FetchAllTime(ctx context.Context) (*models.TransferTotals, error)
	Ping(ctx context.Context) error
}

// Store reads the persisted daily ledger.
type Store interface {
	ListSnapshots(ctx context.Context, limit int) ([]*models.DailySnapshot, error)
	LatestSnapshot(ctx context.Context) (*models.DailySnapshot, error)
	Ping(ctx context.Context) error
}

// Reconciler triggers an on-demand reconciliation.
type Reconciler interface {
	Reconcile(ctx context.Context, now time.Time, trigger string) (*models.DailySnapshot, error)
}

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	source     Source
	store      Store
	reconciler Reconciler
	cfg        *config.APIConfig
	loc        *time.Location
	version    string
	startTime  time.Time
	validate   *validator.Validate
}

// NewHandler creates the API handler set. loc resolves "today" for the
// on-demand snapshot trigger; a nil loc means host local time.
func NewHandler(source Source, store Store, reconciler Reconciler, cfg *config.APIConfig, loc *time.Location, version string) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		source:     source,
		store:      store,
		reconciler: reconciler,
		cfg:        cfg,
		loc:        loc,
		version:    version,
		startTime:  time.Now(),
		validate:   validator.New(),
	}
}

// Health reports process, database, and source connectivity. The
// response is always 200; a broken dependency shows as "degraded".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := models.HealthStatus{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if err := h.store.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("Health check: database unreachable")
		status.Status = "degraded"
	} else {
		status.DatabaseConnected = true
	}

	if err := h.source.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("Health check: counter source unreachable")
	} else {
		status.SourceConnected = true
	}

	if latest, err := h.store.LatestSnapshot(ctx); err == nil {
		ts := latest.Date.Time
		status.LastSnapshotTime = &ts
	}

	respondJSON(w, http.StatusOK, status)
}

// Sources lists the supported counter source identifiers.
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, []string{SourceName})
}

// Current returns live session transfer totals, fetched through to the
// torrent client without touching the ledger.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	totals, err := h.source.FetchTotals(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to fetch current totals")
		respondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to fetch qBittorrent totals: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, transferReport(totals))
}

// AllTime returns live lifetime transfer totals.
func (h *Handler) AllTime(w http.ResponseWriter, r *http.Request) {
	totals, err := h.source.FetchAllTime(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to fetch alltime totals")
		respondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to fetch qBittorrent alltime: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, transferReport(totals))
}

// Daily returns the stored ledger: the most recent `limit` rows,
// oldest-first. limit defaults to the configured default and is capped
// at the configured maximum.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", sanitizeLogValue(raw)))
			return
		}
		if err := h.validate.Var(parsed, fmt.Sprintf("min=1,max=%d", h.cfg.MaxLimit)); err != nil {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", h.cfg.MaxLimit))
			return
		}
		limit = parsed
	}

	snapshots, err := h.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list daily snapshots")
		respondError(w, http.StatusInternalServerError, "failed to read daily ledger")
		return
	}
	if snapshots == nil {
		snapshots = []*models.DailySnapshot{}
	}
	respondJSON(w, http.StatusOK, snapshots)
}

// Snapshot forces a reconciliation now. Same contract as the scheduled
// run, but synchronous: the caller learns whether it succeeded.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	_, err := h.reconciler.Reconcile(r.Context(), time.Now().In(h.loc), "manual")
	if err != nil {
		logging.Error().Err(err).Msg("On-demand snapshot failed")
		if errors.Is(err, qbittorrent.ErrSourceUnavailable) {
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
}
