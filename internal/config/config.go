// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

// Package config loads and validates the application configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
//  1. Environment variables (QB_URL, SCHED_DAILY_AT, ...)
//  2. Optional YAML config file (config.yaml, CONFIG_PATH override)
//  3. Built-in defaults
//
// Startup fails immediately when required credentials are missing or when
// a value such as the schedule time or timezone does not validate.
package config

import (
	"time"
)

// Config is the root configuration for the ms-info server.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	QBittorrent QBittorrentConfig `koanf:"qbittorrent"`
	Schedule    ScheduleConfig    `koanf:"schedule"`
	Radarr      RadarrConfig      `koanf:"radarr"`
	Telegram    TelegramConfig    `koanf:"telegram"`
	API         APIConfig         `koanf:"api"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB settings. The database file is created on
// first startup if absent.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// QBittorrentConfig holds the counter source connection settings.
// URL, Username, and Password are required; the process refuses to start
// without them.
type QBittorrentConfig struct {
	URL      string        `koanf:"url"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	Timeout  time.Duration `koanf:"timeout"`
}

// ScheduleConfig controls the daily reconciliation timer.
//
// DailyAt is a local wall-clock time in HH:MM form. Timezone optionally
// pins the schedule to a named IANA zone; empty or "local" means the host
// local time. Unrecognized names are rejected at startup.
type ScheduleConfig struct {
	DailyAt  string `koanf:"daily_at"`
	Timezone string `koanf:"timezone"`
}

// Location resolves the configured timezone. Call Validate first; after a
// successful Validate this cannot fail.
func (s ScheduleConfig) Location() (*time.Location, error) {
	return resolveLocation(s.Timezone)
}

// RadarrConfig holds the release calendar source settings. The notifier is
// opt-in: when Enabled is false the rest of the section is ignored.
type RadarrConfig struct {
	Enabled    bool          `koanf:"enabled"`
	URL        string        `koanf:"url"`
	APIKey     string        `koanf:"api_key"`
	AnnounceAt string        `koanf:"announce_at"`
	Timeout    time.Duration `koanf:"timeout"`
}

// TelegramConfig holds the chat bot credentials used by the notifier.
type TelegramConfig struct {
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
}

// APIConfig holds reporting surface settings.
type APIConfig struct {
	DefaultLimit    int           `koanf:"default_limit"`
	MaxLimit        int           `koanf:"max_limit"`
	RateLimitReqs   int           `koanf:"rate_limit_requests"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads, layers, and validates the full configuration.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
