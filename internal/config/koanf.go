// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ms-info/config.yaml",
	"/etc/ms-info/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8010,
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "data/ms_info.duckdb",
			MaxMemory: "512MB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		QBittorrent: QBittorrentConfig{
			URL:      "",
			Username: "",
			Password: "",
			Timeout:  15 * time.Second,
		},
		Schedule: ScheduleConfig{
			DailyAt:  "00:01",
			Timezone: "", // host local time
		},
		Radarr: RadarrConfig{
			Enabled:    false,
			URL:        "",
			APIKey:     "",
			AnnounceAt: "00:15",
			Timeout:    15 * time.Second,
		},
		Telegram: TelegramConfig{
			BotToken: "",
			ChatID:   "",
		},
		API: APIConfig{
			DefaultLimit:    30,
			MaxLimit:        365,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
// defaults, then an optional YAML file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// The short names (QB_URL, SCHED_DAILY_AT, TELEGRAM_BOT, ...) are the
// variables the service has always used; everything else falls through to
// the SECTION_FIELD convention (e.g. SERVER_PORT -> server.port).
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"qb_url":      "qbittorrent.url",
		"qb_username": "qbittorrent.username",
		"qb_password": "qbittorrent.password",
		"qb_timeout":  "qbittorrent.timeout",

		"sched_daily_at": "schedule.daily_at",
		"sched_tz":       "schedule.timezone",

		"radarr_enabled":     "radarr.enabled",
		"radarr_url":         "radarr.url",
		"radarr_api_key":     "radarr.api_key",
		"radarr_announce_at": "radarr.announce_at",

		"telegram_bot":  "telegram.bot_token",
		"telegram_chat": "telegram.chat_id",

		"db_path":       "database.path",
		"db_max_memory": "database.max_memory",
		"db_threads":    "database.threads",

		"host": "server.host",
		"port": "server.port",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"api_default_limit":       "api.default_limit",
		"api_max_limit":           "api.max_limit",
		"api_rate_limit_requests": "api.rate_limit_requests",
		"api_rate_limit_window":   "api.rate_limit_window",
		"api_cors_origins":        "api.cors_origins",
	}
	if path, ok := envMappings[key]; ok {
		return path
	}

	// Generic SECTION_FIELD fallback for known sections only; unrelated
	// host environment variables must not leak into the config tree.
	for _, section := range []string{"server", "database", "qbittorrent", "schedule", "radarr", "telegram", "api", "logging"} {
		prefix := section + "_"
		if strings.HasPrefix(key, prefix) {
			return section + "." + strings.TrimPrefix(key, prefix)
		}
	}
	return ""
}
