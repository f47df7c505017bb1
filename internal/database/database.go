// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

// Package database owns the daily snapshot ledger, persisted in an
// embedded DuckDB file. The schema is created on first startup if
// missing; there are no versioned migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/yasalmasri/ms-info/internal/config"
)

// DB wraps the DuckDB connection and provides snapshot ledger access.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens (or creates) the database file and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure the parent directory exists so a fresh deployment does not
	// fail with "No such file or directory". 0750 per gosec G301.
	if cfg.Path != ":memory:" {
		if dbDir := filepath.Dir(cfg.Path); dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, cfg.MaxMemory)
	if cfg.Path == ":memory:" {
		connStr = ":memory:"
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configureConnectionPool()

	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// configureConnectionPool tunes database/sql pooling for an embedded,
// single-process database.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(4)
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
}

// createTables creates the ledger schema if missing. The PRIMARY KEY on
// date enforces at most one row per calendar date at the storage layer,
// so concurrent writers cannot create duplicate same-day rows.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS daily_snapshots (
			date DATE PRIMARY KEY,
			total_uploaded_bytes BIGINT NOT NULL DEFAULT 0,
			total_downloaded_bytes BIGINT NOT NULL DEFAULT 0,
			total_share_ratio DOUBLE NOT NULL DEFAULT 0.0,
			daily_uploaded_bytes BIGINT NOT NULL DEFAULT 0,
			daily_downloaded_bytes BIGINT NOT NULL DEFAULT 0,
			daily_share_ratio DOUBLE NOT NULL DEFAULT 0.0
		)`)
	if err != nil {
		return fmt.Errorf("failed to create daily_snapshots table: %w", err)
	}
	return nil
}

// Conn returns the underlying SQL database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// closeQuietly closes a connection ignoring the error. Used on
// initialization failure paths where the original error matters more.
func closeQuietly(conn *sql.DB) {
	_ = conn.Close()
}
