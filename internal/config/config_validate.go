// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yasalmasri/ms-info/internal/scheduler"
)

// Validate checks that required configuration is present and valid.
// Any error here is fatal: the process must not start with a broken or
// incomplete configuration.
func (c *Config) Validate() error {
	if err := c.validateQBittorrent(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateRadarr(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateQBittorrent checks the counter source credentials. All three are
// hard requirements; there is no degraded mode without the source.
func (c *Config) validateQBittorrent() error {
	if c.QBittorrent.URL == "" {
		return fmt.Errorf("QB_URL is required")
	}
	if err := validateHTTPURL(c.QBittorrent.URL, "QB_URL"); err != nil {
		return err
	}
	if c.QBittorrent.Username == "" {
		return fmt.Errorf("QB_USERNAME is required")
	}
	if c.QBittorrent.Password == "" {
		return fmt.Errorf("QB_PASSWORD is required")
	}
	if c.QBittorrent.Timeout <= 0 {
		return fmt.Errorf("QB_TIMEOUT must be positive, got %s", c.QBittorrent.Timeout)
	}
	return nil
}

// validateSchedule checks the daily time and resolves the timezone once,
// rejecting unrecognized names at startup rather than at trigger time.
func (c *Config) validateSchedule() error {
	if _, err := scheduler.ParseDailyTime(c.Schedule.DailyAt); err != nil {
		return fmt.Errorf("SCHED_DAILY_AT is invalid: %w", err)
	}
	if _, err := resolveLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("SCHED_TZ is invalid: %w", err)
	}
	return nil
}

// validateRadarr checks the notifier settings, but only when enabled.
func (c *Config) validateRadarr() error {
	if !c.Radarr.Enabled {
		return nil
	}
	if c.Radarr.URL == "" {
		return fmt.Errorf("RADARR_URL is required when RADARR_ENABLED=true")
	}
	if err := validateHTTPURL(c.Radarr.URL, "RADARR_URL"); err != nil {
		return err
	}
	if c.Radarr.APIKey == "" {
		return fmt.Errorf("RADARR_API_KEY is required when RADARR_ENABLED=true")
	}
	if _, err := scheduler.ParseDailyTime(c.Radarr.AnnounceAt); err != nil {
		return fmt.Errorf("RADARR_ANNOUNCE_AT is invalid: %w", err)
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT is required when RADARR_ENABLED=true")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT is required when RADARR_ENABLED=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.API.DefaultLimit <= 0 || c.API.MaxLimit < c.API.DefaultLimit {
		return fmt.Errorf("api limits are inconsistent: default=%d max=%d", c.API.DefaultLimit, c.API.MaxLimit)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT %q must be json or console", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL checks that a value parses as an absolute http(s) URL.
func validateHTTPURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}

// resolveLocation maps the configured timezone name to a time.Location.
// Empty and "local" mean the host local time.
func resolveLocation(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", trimmed, err)
	}
	return loc, nil
}
