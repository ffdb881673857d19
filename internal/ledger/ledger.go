// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite audit log of what each run did with each
// collection item. The ledger is write-only from the download loop's point
// of view: whether a PDF is fetched is decided by the filesystem alone.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/archive-fetch/pkg/types"
)

const defaultLimit = 50

// Store manages the ledger database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path and creates the schema if it
// does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			identifier TEXT NOT NULL,
			filename TEXT NOT NULL,
			url TEXT NOT NULL,
			outcome TEXT NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_collection ON items(collection)`,
		`CREATE INDEX IF NOT EXISTS idx_items_identifier ON items(identifier)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record appends one item result.
func (s *Store) Record(ctx context.Context, item types.ItemResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (collection, identifier, filename, url, outcome, bytes, error, at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Collection, item.Identifier, item.Filename, item.URL, string(item.Outcome),
		item.Bytes, item.Error, item.At.UTC().Format(time.RFC3339Nano), item.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting ledger row: %w", err)
	}
	return nil
}

// QueryOptions filters History results.
type QueryOptions struct {
	Collection string
	Identifier string
	Outcome    types.Outcome

	// Limit caps the number of rows; zero uses the default (50), a negative
	// value returns everything.
	Limit int
}

// History returns recorded items, newest first.
func (s *Store) History(ctx context.Context, opts QueryOptions) ([]types.ItemResult, error) {
	var where []string
	var args []any
	if opts.Collection != "" {
		where = append(where, "collection = ?")
		args = append(args, opts.Collection)
	}
	if opts.Identifier != "" {
		where = append(where, "identifier = ?")
		args = append(args, opts.Identifier)
	}
	if opts.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(opts.Outcome))
	}

	q := `SELECT collection, identifier, filename, url, outcome, bytes, error, at, duration_ms FROM items`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"

	limit := opts.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var items []types.ItemResult
	for rows.Next() {
		var (
			item       types.ItemResult
			outcome    string
			at         string
			durationMS int64
		)
		if err := rows.Scan(&item.Collection, &item.Identifier, &item.Filename, &item.URL,
			&outcome, &item.Bytes, &item.Error, &at, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		item.Outcome = types.Outcome(outcome)
		if t, parseErr := time.Parse(time.RFC3339Nano, at); parseErr == nil {
			item.At = t
		}
		item.Duration = time.Duration(durationMS) * time.Millisecond
		items = append(items, item)
	}
	return items, rows.Err()
}

// Summary holds outcome counts for a collection.
type Summary map[types.Outcome]int

// Summarize counts recorded outcomes, optionally restricted to collection.
func (s *Store) Summarize(ctx context.Context, collection string) (Summary, error) {
	q := `SELECT outcome, count(*) FROM items`
	var args []any
	if collection != "" {
		q += ` WHERE collection = ?`
		args = append(args, collection)
	}
	q += ` GROUP BY outcome`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("summarizing ledger: %w", err)
	}
	defer rows.Close()

	summary := Summary{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		summary[types.Outcome(outcome)] = n
	}
	return summary, rows.Err()
}
