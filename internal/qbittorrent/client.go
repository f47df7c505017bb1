// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

/*
client.go - Core qBittorrent Web API Client

This file provides the core Client struct and HTTP communication layer
for the qBittorrent Web API (v2).

Client Features:
  - Session cookie (SID) authentication with lazy login
  - Automatic re-login on session expiry (401/403)
  - Configurable request timeout
  - JSON response parsing
  - Context support for cancellation and timeouts

All upstream failures surface as ErrSourceUnavailable so callers can
distinguish "the torrent client is unreachable" from local faults.
*/
package qbittorrent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/yasalmasri/ms-info/internal/config"
	"github.com/yasalmasri/ms-info/internal/logging"
	"github.com/yasalmasri/ms-info/internal/models"
)

// ErrSourceUnavailable indicates the qBittorrent API could not be
// reached, rejected our credentials, or returned a non-200 response.
var ErrSourceUnavailable = errors.New("qbittorrent unavailable")

const (
	loginPath    = "/api/v2/auth/login"
	transferPath = "/api/v2/transfer/info"
	maindataPath = "/api/v2/sync/maindata"
)

// transferInfo mirrors the /api/v2/transfer/info payload fields we use.
type transferInfo struct {
	UpInfoData int64 `json:"up_info_data"`
	DlInfoData int64 `json:"dl_info_data"`
}

// mainData mirrors the /api/v2/sync/maindata payload fields we use.
// global_ratio is a string in the wire format ("1.54").
type mainData struct {
	ServerState struct {
		AlltimeUL   int64  `json:"alltime_ul"`
		AlltimeDL   int64  `json:"alltime_dl"`
		GlobalRatio string `json:"global_ratio"`
	} `json:"server_state"`
}

// Client talks to a qBittorrent Web API instance.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client

	mu  sync.Mutex
	sid string // session cookie, empty until first login
}

// NewClient creates a qBittorrent client. No network calls are made
// until the first request; login happens lazily.
func NewClient(cfg *config.QBittorrentConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// login authenticates and stores the SID session cookie. qBittorrent
// returns 200 with a literal "Ok." body on success and 200 with
// "Fails." on bad credentials, so the body must be checked too.
func (c *Client) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: failed to create login request: %w", ErrSourceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: login request failed: %w", ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return fmt.Errorf("%w: failed to read login response: %w", ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Ok.") {
		return fmt.Errorf("%w: login rejected (status %d)", ErrSourceUnavailable, resp.StatusCode)
	}

	sid := ""
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "SID" {
			sid = cookie.Value
			break
		}
	}
	if sid == "" {
		return fmt.Errorf("%w: login succeeded but no SID cookie returned", ErrSourceUnavailable)
	}

	c.mu.Lock()
	c.sid = sid
	c.mu.Unlock()

	logging.Debug().Str("component", "qbittorrent").Msg("Authenticated with qBittorrent")
	return nil
}

// session returns the current SID, logging in first if there is none.
func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	sid := c.sid
	c.mu.Unlock()
	if sid != "" {
		return sid, nil
	}
	if err := c.login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	sid = c.sid
	c.mu.Unlock()
	return sid, nil
}

// invalidateSession drops the cached SID so the next call re-logins.
func (c *Client) invalidateSession() {
	c.mu.Lock()
	c.sid = ""
	c.mu.Unlock()
}

// getJSON performs an authenticated GET and decodes the JSON response
// into result. An expired session (401/403) triggers exactly one
// re-login and retry; a second rejection surfaces as unavailable.
func (c *Client) getJSON(ctx context.Context, path string, result interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		sid, err := c.session(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("%w: failed to create request: %w", ErrSourceUnavailable, err)
		}
		req.AddCookie(&http.Cookie{Name: "SID", Value: sid})

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: request to %s failed: %w", ErrSourceUnavailable, path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			_ = resp.Body.Close()
			c.invalidateSession()
			if attempt == 0 {
				logging.Debug().Str("component", "qbittorrent").Int("status", resp.StatusCode).Msg("Session expired, re-authenticating")
				continue
			}
			return fmt.Errorf("%w: authentication rejected for %s (status %d)", ErrSourceUnavailable, path, resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return fmt.Errorf("%w: unexpected status %d from %s", ErrSourceUnavailable, resp.StatusCode, path)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: failed to read response from %s: %w", ErrSourceUnavailable, path, err)
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("%w: failed to parse response from %s: %w", ErrSourceUnavailable, path, err)
		}
		return nil
	}
	return fmt.Errorf("%w: retries exhausted for %s", ErrSourceUnavailable, path)
}

// FetchTotals returns the session transfer counters from
// /api/v2/transfer/info (bytes uploaded/downloaded this session).
func (c *Client) FetchTotals(ctx context.Context) (*models.TransferTotals, error) {
	var info transferInfo
	if err := c.getJSON(ctx, transferPath, &info); err != nil {
		return nil, err
	}
	return &models.TransferTotals{
		UploadedBytes:   info.UpInfoData,
		DownloadedBytes: info.DlInfoData,
	}, nil
}

// FetchAllTime returns the lifetime transfer counters and the reported
// global share ratio from /api/v2/sync/maindata. These are the
// cumulative counters the daily ledger is reconciled against.
func (c *Client) FetchAllTime(ctx context.Context) (*models.TransferTotals, error) {
	var data mainData
	if err := c.getJSON(ctx, maindataPath, &data); err != nil {
		return nil, err
	}

	totals := &models.TransferTotals{
		UploadedBytes:   data.ServerState.AlltimeUL,
		DownloadedBytes: data.ServerState.AlltimeDL,
	}
	if ratio, err := strconv.ParseFloat(data.ServerState.GlobalRatio, 64); err == nil {
		totals.ReportedRatio = ratio
	}
	return totals, nil
}

// Ping verifies the client can authenticate and reach the API.
func (c *Client) Ping(ctx context.Context) error {
	var info transferInfo
	return c.getJSON(ctx, transferPath, &info)
}
