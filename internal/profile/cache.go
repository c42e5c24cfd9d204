// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/war100ck/Steam-Account-Manager/internal/steamapi"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// SchemaVersion tracks the cache schema for migrations.
const SchemaVersion = 1

// Schema is the profile cache layout. Player data is stored as the JSON
// returned by the Web API so new fields need no migration.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS profiles (
    steamid TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    fetched_at INTEGER NOT NULL -- Unix timestamp
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS idx_profiles_fetched_at ON profiles(fetched_at);
`

// Retention is how long a profile that was never refreshed stays cached.
const Retention = 90 * 24 * time.Hour

// ErrNotCached is returned by Cache.Get for unknown SteamIDs.
var ErrNotCached = errors.New("profile not cached")

// Entry is one cached profile.
type Entry struct {
	Player    steamapi.Player
	FetchedAt time.Time
}

// Age returns how old the entry is at now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Cache stores player summaries in SQLite.
type Cache struct {
	db *sql.DB
}

// OpenCache opens or creates the cache database at path.
func OpenCache(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), util.PrivateDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)",
		fmt.Sprint(SchemaVersion),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if path != ":memory:" {
		_ = os.Chmod(path, util.PrivateFilePerm)
	}
	return &Cache{db: db}, nil
}

// Get returns the cached entry for steamID.
func (c *Cache) Get(ctx context.Context, steamID string) (*Entry, error) {
	var data string
	var fetched int64
	err := c.db.QueryRowContext(ctx,
		"SELECT data, fetched_at FROM profiles WHERE steamid = ?", steamID,
	).Scan(&data, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached profile: %w", err)
	}

	e := &Entry{FetchedAt: time.Unix(fetched, 0)}
	if err := json.Unmarshal([]byte(data), &e.Player); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile: %w", err)
	}
	return e, nil
}

// Put stores p as fetched at the given time, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, p *steamapi.Player, fetchedAt time.Time) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO profiles (steamid, data, fetched_at) VALUES (?, ?, ?)",
		p.SteamID, string(data), fetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}
	return nil
}

// Delete drops one entry. Missing entries are not an error.
func (c *Cache) Delete(ctx context.Context, steamID string) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM profiles WHERE steamid = ?", steamID)
	return err
}

// Prune removes entries fetched before cutoff and returns how many.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM profiles WHERE fetched_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of cached profiles.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&n)
	return n, err
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
