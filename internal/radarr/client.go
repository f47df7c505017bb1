// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

// Package radarr reads the movie release calendar from a Radarr
// instance and announces the day's digital releases.
package radarr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/yasalmasri/ms-info/internal/config"
	"github.com/yasalmasri/ms-info/internal/metrics"
)

// Movie is a calendar entry from the Radarr v3 API. Only the fields the
// announcer needs are mapped; DigitalRelease is absent for titles with
// no digital release date yet.
type Movie struct {
	Title          string     `json:"title"`
	TmdbID         int64      `json:"tmdbId"`
	DigitalRelease *time.Time `json:"digitalRelease,omitempty"`
	Images         []Image    `json:"images,omitempty"`
}

// Image is a poster or banner reference on a calendar entry.
type Image struct {
	CoverType string `json:"coverType"`
	RemoteURL string `json:"remoteUrl"`
}

// Client talks to the Radarr v3 API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Radarr API client.
func NewClient(cfg *config.RadarrConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the Radarr UI base URL, used to build movie links.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Calendar returns the movies in Radarr's default calendar window.
func (c *Client) Calendar(ctx context.Context) ([]Movie, error) {
	movies, err := c.fetchCalendar(ctx)
	metrics.RecordSourceRequest("radarr", err)
	return movies, err
}

func (c *Client) fetchCalendar(ctx context.Context) ([]Movie, error) {
	endpoint := fmt.Sprintf("%s/api/v3/calendar?apikey=%s", c.baseURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("radarr returned status %d for calendar", resp.StatusCode)
	}

	var movies []Movie
	if err := json.NewDecoder(resp.Body).Decode(&movies); err != nil {
		return nil, fmt.Errorf("failed to parse calendar response: %w", err)
	}
	return movies, nil
}
