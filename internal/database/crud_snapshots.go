// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yasalmasri/ms-info/internal/models"
)

// ErrNotFound is returned when no snapshot row exists for the query.
var ErrNotFound = errors.New("snapshot not found")

const snapshotColumns = `date, total_uploaded_bytes, total_downloaded_bytes, total_share_ratio,
		daily_uploaded_bytes, daily_downloaded_bytes, daily_share_ratio`

// GetSnapshot returns the snapshot for the exact date, or ErrNotFound.
func (db *DB) GetSnapshot(ctx context.Context, date models.Date) (*models.DailySnapshot, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM daily_snapshots
		WHERE date = ?`, date.Time)
	return scanSnapshot(row)
}

// GetLatestSnapshotBefore returns the most recent snapshot with a date
// strictly earlier than the given date, or ErrNotFound when the ledger
// holds no earlier row. Gaps in the ledger are fine: the nearest prior
// row wins regardless of how many days back it is.
func (db *DB) GetLatestSnapshotBefore(ctx context.Context, date models.Date) (*models.DailySnapshot, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM daily_snapshots
		WHERE date < ?
		ORDER BY date DESC
		LIMIT 1`, date.Time)
	return scanSnapshot(row)
}

// UpsertSnapshot inserts the snapshot, replacing any existing row for
// the same date. The conflict target is the date primary key, so a
// re-run on the same day overwrites in place rather than duplicating.
func (db *DB) UpsertSnapshot(ctx context.Context, snap *models.DailySnapshot) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO daily_snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			total_uploaded_bytes = excluded.total_uploaded_bytes,
			total_downloaded_bytes = excluded.total_downloaded_bytes,
			total_share_ratio = excluded.total_share_ratio,
			daily_uploaded_bytes = excluded.daily_uploaded_bytes,
			daily_downloaded_bytes = excluded.daily_downloaded_bytes,
			daily_share_ratio = excluded.daily_share_ratio`,
		snap.Date.Time,
		snap.TotalUploadedBytes, snap.TotalDownloadedBytes, snap.TotalShareRatio,
		snap.DailyUploadedBytes, snap.DailyDownloadedBytes, snap.DailyShareRatio)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot for %s: %w", snap.Date, err)
	}
	return nil
}

// ListSnapshots returns up to limit snapshots ordered oldest-first.
// The limit selects the NEWEST rows; the result is then reversed so
// callers render a chronological series ending at the most recent day.
func (db *DB) ListSnapshots(ctx context.Context, limit int) ([]*models.DailySnapshot, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM daily_snapshots
		ORDER BY date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshots []*models.DailySnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	// Reverse newest-first into oldest-first.
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}
	return snapshots, nil
}

// LatestSnapshot returns the most recent snapshot, or ErrNotFound when
// the ledger is empty.
func (db *DB) LatestSnapshot(ctx context.Context) (*models.DailySnapshot, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM daily_snapshots
		ORDER BY date DESC
		LIMIT 1`)
	return scanSnapshot(row)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scanner) (*models.DailySnapshot, error) {
	var (
		snap models.DailySnapshot
		date time.Time
	)
	err := row.Scan(&date,
		&snap.TotalUploadedBytes, &snap.TotalDownloadedBytes, &snap.TotalShareRatio,
		&snap.DailyUploadedBytes, &snap.DailyDownloadedBytes, &snap.DailyShareRatio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	snap.Date = models.DateOf(date.UTC())
	return &snap, nil
}
