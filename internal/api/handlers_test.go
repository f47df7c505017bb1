// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/yasalmasri/ms-info/internal/config"
	"github.com/yasalmasri/ms-info/internal/database"
	"github.com/yasalmasri/ms-info/internal/models"
	"github.com/yasalmasri/ms-info/internal/qbittorrent"
)

type stubSource struct {
	totals  *models.TransferTotals
	alltime *models.TransferTotals
	err     error
	pingErr error
}

func (s *stubSource) FetchTotals(ctx context.Context) (*models.TransferTotals, error) {
	return s.totals, s.err
}

func (s *stubSource) FetchAllTime(ctx context.Context) (*models.TransferTotals, error) {
	return s.alltime, s.err
}

func (s *stubSource) Ping(ctx context.Context) error { return s.pingErr }

type stubStore struct {
	snapshots []*models.DailySnapshot
	gotLimit  int
	listErr   error
	pingErr   error
}

func (s *stubStore) ListSnapshots(ctx context.Context, limit int) ([]*models.DailySnapshot, error) {
	s.gotLimit = limit
	if s.listErr != nil {
		return nil, s.listErr
	}
	if limit < len(s.snapshots) {
		return s.snapshots[len(s.snapshots)-limit:], nil
	}
	return s.snapshots, nil
}

func (s *stubStore) LatestSnapshot(ctx context.Context) (*models.DailySnapshot, error) {
	if len(s.snapshots) == 0 {
		return nil, database.ErrNotFound
	}
	return s.snapshots[len(s.snapshots)-1], nil
}

func (s *stubStore) Ping(ctx context.Context) error { return s.pingErr }

type stubReconciler struct {
	snap *models.DailySnapshot
	err  error
	runs int
}

func (s *stubReconciler) Reconcile(ctx context.Context, now time.Time, trigger string) (*models.DailySnapshot, error) {
	s.runs++
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func testAPIConfig() *config.APIConfig {
	return &config.APIConfig{
		DefaultLimit:    30,
		MaxLimit:        365,
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
		CORSOrigins:     []string{"*"},
	}
}

func newTestRouter(source *stubSource, store *stubStore, rec *stubReconciler) http.Handler {
	handler := NewHandler(source, store, rec, testAPIConfig(), time.UTC, "test")
	return NewRouter(handler, testAPIConfig())
}

func doRequest(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	store := &stubStore{snapshots: []*models.DailySnapshot{
		{Date: models.NewDate(2026, 8, 29)},
	}}
	router := newTestRouter(&stubSource{}, store, &stubReconciler{})

	rr := doRequest(t, router, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var health models.HealthStatus
	decodeBody(t, rr, &health)
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	if !health.DatabaseConnected || !health.SourceConnected {
		t.Errorf("connectivity = (db %v, source %v), want both true", health.DatabaseConnected, health.SourceConnected)
	}
	if health.LastSnapshotTime == nil {
		t.Error("LastSnapshotTime = nil, want latest snapshot date")
	}
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	store := &stubStore{pingErr: errors.New("db closed")}
	router := newTestRouter(&stubSource{}, store, &stubReconciler{})

	rr := doRequest(t, router, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when degraded", rr.Code)
	}

	var health models.HealthStatus
	decodeBody(t, rr, &health)
	if health.Status != "degraded" {
		t.Errorf("status = %q, want degraded", health.Status)
	}
	if health.DatabaseConnected {
		t.Error("DatabaseConnected = true, want false")
	}
}

func TestSources(t *testing.T) {
	router := newTestRouter(&stubSource{}, &stubStore{}, &stubReconciler{})

	rr := doRequest(t, router, http.MethodGet, "/api/sources")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var sources []string
	decodeBody(t, rr, &sources)
	if len(sources) != 1 || sources[0] != "qbittorrent" {
		t.Errorf("sources = %v, want [qbittorrent]", sources)
	}
}

func TestCurrent(t *testing.T) {
	source := &stubSource{totals: &models.TransferTotals{
		UploadedBytes:   5 * bytesPerGiB,
		DownloadedBytes: 2 * bytesPerGiB,
	}}
	router := newTestRouter(source, &stubStore{}, &stubReconciler{})

	rr := doRequest(t, router, http.MethodGet, "/api/qbittorrent/current")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var report models.TransferReport
	decodeBody(t, rr, &report)
	if report.Uploaded != 5.0 || report.UploadedUnit != "GB" {
		t.Errorf("uploaded = %v %s, want 5 GB", report.Uploaded, report.UploadedUnit)
	}
	if report.Downloaded != 2.0 || report.DownloadedUnit != "GB" {
		t.Errorf("downloaded = %v %s, want 2 GB", report.Downloaded, report.DownloadedUnit)
	}
	if report.ShareRatio != 2.5 {
		t.Errorf("share_ratio = %v, want 2.5", report.ShareRatio)
	}
}

func TestCurrentSourceUnavailable(t *testing.T) {
	source := &stubSource{err: fmt.Errorf("%w: connection refused", qbittorrent.ErrSourceUnavailable)}
	router := newTestRouter(source, &stubStore{}, &stubReconciler{})

	rr := doRequest(t, router, http.MethodGet, "/api/qbittorrent/current")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}

	var errResp models.ErrorResponse
	decodeBody(t, rr, &errResp)
	if errResp.Error == "" {
		t.Error("error message is empty")
	}
}

func TestAllTimeUsesReportedRatio(t *testing.T) {
	source := &stubSource{alltime: &models.TransferTotals{
		UploadedBytes:   2048 * bytesPerGiB,
		DownloadedBytes: 1 * bytesPerGiB,
		ReportedRatio:   1.54,
	}}
	router := newTestRouter(source, &stubStore{}, &stubReconciler{})

	rr := doRequest(t, router, http.MethodGet, "/api/qbittorrent/alltime")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var report models.TransferReport
	decodeBody(t, rr, &report)
	if report.Uploaded != 2.0 || report.UploadedUnit != "TB" {
		t.Errorf("uploaded = %v %s, want 2 TB", report.Uploaded, report.UploadedUnit)
	}
	if report.ShareRatio != 1.54 {
		t.Errorf("share_ratio = %v, want the reported 1.54", report.ShareRatio)
	}
}

func TestDailyDefaultLimit(t *testing.T) {
	store := &stubStore{}
	router := newTestRouter(&stubSource{}, store, &stubReconciler{})

	rr := doRequest(t, router, http.MethodGet, "/api/qbittorrent/daily")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if store.gotLimit != 30 {
		t.Errorf("limit passed to store = %d, want default 30", store.gotLimit)
	}

	var snaps []*models.DailySnapshot
	decodeBody(t, rr, &snaps)
	if snaps == nil {
		t.Error("empty ledger must serialize as [], not null")
	}
}

func TestDailyExplicitLimit(t *testing.T) {
	store := &stubStore{snapshots: []*models.DailySnapshot{
		{Date: models.NewDate(2026, 8, 27), DailyUploadedBytes: 1},
		{Date: models.NewDate(2026, 8, 28), DailyUploadedBytes: 2},
		{Date: models.NewDate(2026, 8, 29), DailyUploadedBytes: 3},
	}}
	router := newTestRouter(&stubSource{}, store, &stubReconciler{})

	rr := doRequest(t, router, http.MethodGet, "/api/qbittorrent/daily?limit=2")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if store.gotLimit != 2 {
		t.Errorf("limit passed to store = %d, want 2", store.gotLimit)
	}

	var snaps []*models.DailySnapshot
	decodeBody(t, rr, &snaps)
	if len(snaps) != 2 {
		t.Fatalf("len = %d, want 2", len(snaps))
	}
	if !snaps[0].Date.Before(snaps[1].Date) {
		t.Errorf("snapshots not oldest-first: %s then %s", snaps[0].Date, snaps[1].Date)
	}
}

func TestDailyInvalidLimit(t *testing.T) {
	router := newTestRouter(&stubSource{}, &stubStore{}, &stubReconciler{})

	for _, limit := range []string{"abc", "0", "-5", "9999"} {
		rr := doRequest(t, router, http.MethodGet, "/api/qbittorrent/daily?limit="+limit)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rr.Code)
		}
	}
}

func TestSnapshotTrigger(t *testing.T) {
	rec := &stubReconciler{snap: &models.DailySnapshot{Date: models.NewDate(2026, 8, 29)}}
	router := newTestRouter(&stubSource{}, &stubStore{}, rec)

	rr := doRequest(t, router, http.MethodPost, "/api/qbittorrent/snapshot")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rec.runs != 1 {
		t.Errorf("reconciler runs = %d, want 1", rec.runs)
	}

	var status models.StatusResponse
	decodeBody(t, rr, &status)
	if status.Status != "ok" {
		t.Errorf("status = %q, want ok", status.Status)
	}
}

func TestSnapshotSourceUnavailable(t *testing.T) {
	rec := &stubReconciler{err: fmt.Errorf("%w: timeout", qbittorrent.ErrSourceUnavailable)}
	router := newTestRouter(&stubSource{}, &stubStore{}, rec)

	rr := doRequest(t, router, http.MethodPost, "/api/qbittorrent/snapshot")
	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 for source failure", rr.Code)
	}
}

func TestSnapshotStoreError(t *testing.T) {
	rec := &stubReconciler{err: errors.New("failed to upsert snapshot: disk full")}
	router := newTestRouter(&stubSource{}, &stubStore{}, rec)

	rr := doRequest(t, router, http.MethodPost, "/api/qbittorrent/snapshot")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for store failure", rr.Code)
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		wantVal  float64
		wantUnit string
	}{
		{name: "zero", bytes: 0, wantVal: 0, wantUnit: "GB"},
		{name: "half gig", bytes: 512 * 1024 * 1024, wantVal: 0.5, wantUnit: "GB"},
		{name: "gigabytes", bytes: 42 * bytesPerGiB, wantVal: 42, wantUnit: "GB"},
		{name: "just under terabyte threshold", bytes: 1023 * bytesPerGiB, wantVal: 1023, wantUnit: "GB"},
		{name: "terabyte threshold", bytes: 1024 * bytesPerGiB, wantVal: 1, wantUnit: "TB"},
		{name: "terabytes", bytes: 2560 * bytesPerGiB, wantVal: 2.5, wantUnit: "TB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, unit := HumanSize(tt.bytes)
			if val != tt.wantVal || unit != tt.wantUnit {
				t.Errorf("HumanSize(%d) = (%v, %s), want (%v, %s)", tt.bytes, val, unit, tt.wantVal, tt.wantUnit)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(&stubSource{}, &stubStore{}, &stubReconciler{})

	rr := doRequest(t, router, http.MethodGet, "/api/qbittorrent/snapshot")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405 for GET on snapshot trigger", rr.Code)
	}
}
