// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package qbittorrent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yasalmasri/ms-info/internal/config"
)

// fakeQB is a minimal qBittorrent Web API double. It issues SID
// cookies on login and rejects data requests without a valid one.
type fakeQB struct {
	username   string
	password   string
	sid        string
	loginCalls int

	transferBody string
	maindataBody string
}

func (f *fakeQB) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls++
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostFormValue("username") != f.username || r.PostFormValue("password") != f.password {
			_, _ = w.Write([]byte("Fails."))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "SID", Value: f.sid})
		_, _ = w.Write([]byte("Ok."))
	})
	authed := func(body func() string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("SID")
			if err != nil || cookie.Value != f.sid {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body()))
		}
	}
	mux.HandleFunc("/api/v2/transfer/info", authed(func() string { return f.transferBody }))
	mux.HandleFunc("/api/v2/sync/maindata", authed(func() string { return f.maindataBody }))
	return mux
}

func newTestClient(t *testing.T, fake *fakeQB) *Client {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	return NewClient(&config.QBittorrentConfig{
		URL:      srv.URL,
		Username: fake.username,
		Password: fake.password,
		Timeout:  5 * time.Second,
	})
}

func TestFetchTotals(t *testing.T) {
	fake := &fakeQB{
		username:     "admin",
		password:     "secret",
		sid:          "abc123",
		transferBody: `{"up_info_data": 123456, "dl_info_data": 654321}`,
	}
	client := newTestClient(t, fake)

	totals, err := client.FetchTotals(context.Background())
	if err != nil {
		t.Fatalf("FetchTotals failed: %v", err)
	}
	if totals.UploadedBytes != 123456 {
		t.Errorf("UploadedBytes = %d, want 123456", totals.UploadedBytes)
	}
	if totals.DownloadedBytes != 654321 {
		t.Errorf("DownloadedBytes = %d, want 654321", totals.DownloadedBytes)
	}
	if fake.loginCalls != 1 {
		t.Errorf("login calls = %d, want 1 (lazy login on first request)", fake.loginCalls)
	}
}

func TestFetchAllTime(t *testing.T) {
	fake := &fakeQB{
		username:     "admin",
		password:     "secret",
		sid:          "abc123",
		maindataBody: `{"server_state": {"alltime_ul": 5000000, "alltime_dl": 2000000, "global_ratio": "2.50"}}`,
	}
	client := newTestClient(t, fake)

	totals, err := client.FetchAllTime(context.Background())
	if err != nil {
		t.Fatalf("FetchAllTime failed: %v", err)
	}
	if totals.UploadedBytes != 5000000 || totals.DownloadedBytes != 2000000 {
		t.Errorf("totals = (%d, %d), want (5000000, 2000000)", totals.UploadedBytes, totals.DownloadedBytes)
	}
	if totals.ReportedRatio != 2.5 {
		t.Errorf("ReportedRatio = %v, want 2.5", totals.ReportedRatio)
	}
}

func TestSessionReusedAcrossRequests(t *testing.T) {
	fake := &fakeQB{
		username:     "admin",
		password:     "secret",
		sid:          "abc123",
		transferBody: `{"up_info_data": 1, "dl_info_data": 1}`,
	}
	client := newTestClient(t, fake)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.FetchTotals(ctx); err != nil {
			t.Fatalf("FetchTotals #%d failed: %v", i, err)
		}
	}
	if fake.loginCalls != 1 {
		t.Errorf("login calls = %d, want 1 (session cookie reused)", fake.loginCalls)
	}
}

func TestReloginOnExpiredSession(t *testing.T) {
	fake := &fakeQB{
		username:     "admin",
		password:     "secret",
		sid:          "first",
		transferBody: `{"up_info_data": 1, "dl_info_data": 1}`,
	}
	client := newTestClient(t, fake)
	ctx := context.Background()

	if _, err := client.FetchTotals(ctx); err != nil {
		t.Fatalf("initial FetchTotals failed: %v", err)
	}

	// Server rotates the session; the cached SID is now stale.
	fake.sid = "second"

	if _, err := client.FetchTotals(ctx); err != nil {
		t.Fatalf("FetchTotals after session expiry failed: %v", err)
	}
	if fake.loginCalls != 2 {
		t.Errorf("login calls = %d, want 2 (one re-login after 403)", fake.loginCalls)
	}
}

func TestBadCredentials(t *testing.T) {
	fake := &fakeQB{
		username: "admin",
		password: "secret",
		sid:      "abc123",
	}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client := NewClient(&config.QBittorrentConfig{
		URL:      srv.URL,
		Username: "admin",
		Password: "wrong",
		Timeout:  5 * time.Second,
	})

	_, err := client.FetchTotals(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestServerErrorIsSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/auth/login" {
			http.SetCookie(w, &http.Cookie{Name: "SID", Value: "x"})
			_, _ = w.Write([]byte("Ok."))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(&config.QBittorrentConfig{
		URL:      srv.URL,
		Username: "admin",
		Password: "secret",
		Timeout:  5 * time.Second,
	})

	_, err := client.FetchAllTime(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestUnreachableServer(t *testing.T) {
	client := NewClient(&config.QBittorrentConfig{
		URL:      "http://127.0.0.1:1", // nothing listens here
		Username: "admin",
		Password: "secret",
		Timeout:  time.Second,
	})

	if err := client.Ping(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("err = %v, want ErrSourceUnavailable", err)
	}
}
