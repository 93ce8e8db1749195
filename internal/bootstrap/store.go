// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrStoreNotFound is returned when the server's database file or its
// ApiKeys table does not exist yet.
var ErrStoreNotFound = errors.New("jellyfin datastore not found")

// TokenStore is the server's persisted credential table.
type TokenStore interface {
	// Available reports whether the store exists and can take a key.
	Available(ctx context.Context) error

	// InsertAPIKey adds the key unless a row with the same token exists.
	// inserted is false when the row was already there.
	InsertAPIKey(ctx context.Context, token, name string) (inserted bool, err error)
}

// SQLiteTokenStore writes directly into jellyfin.db. The server must be
// stopped while InsertAPIKey runs.
type SQLiteTokenStore struct {
	path string
}

var _ TokenStore = (*SQLiteTokenStore)(nil)

// NewSQLiteTokenStore creates a store for the database at path.
func NewSQLiteTokenStore(path string) *SQLiteTokenStore {
	return &SQLiteTokenStore{path: path}
}

// Path returns the database file path.
func (s *SQLiteTokenStore) Path() string {
	return s.path
}

// Available implements TokenStore.
func (s *SQLiteTokenStore) Available(ctx context.Context) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return checkAPIKeysTable(ctx, db)
}

// InsertAPIKey implements TokenStore.
func (s *SQLiteTokenStore) InsertAPIKey(ctx context.Context, token, name string) (bool, error) {
	db, err := s.open()
	if err != nil {
		return false, err
	}
	defer func() { _ = db.Close() }()

	if err := checkAPIKeysTable(ctx, db); err != nil {
		return false, err
	}

	// The NOT EXISTS guard keeps the insert idempotent on schemas without a
	// unique index on AccessToken.
	res, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ApiKeys (AccessToken, Name, DateCreated, DateLastActivity)
		SELECT ?, ?, datetime('now'), datetime('now')
		WHERE NOT EXISTS (SELECT 1 FROM ApiKeys WHERE AccessToken = ?)`,
		token, name, token)
	if err != nil {
		return false, fmt.Errorf("insert api key: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert api key: %w", err)
	}
	return n > 0, nil
}

// open refuses to create a database that is not there; sql.Open would.
func (s *SQLiteTokenStore) open() (*sql.DB, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, s.path)
		}
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrStoreNotFound, s.path)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure %s: %w", s.path, err)
	}
	return db, nil
}

func checkAPIKeysTable(ctx context.Context, db *sql.DB) error {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'ApiKeys'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: ApiKeys table missing", ErrStoreNotFound)
	}
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	return nil
}
