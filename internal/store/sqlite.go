package store

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
	"quoteticker/internal/provider"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLite stores the last quote as JSON in a key-value table.
type SQLite struct {
	db   *sql.DB
	path string
}

// Open creates the database file and its directory if needed.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	// One writer is all this needs; it also keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Load(ctx context.Context) (provider.Update, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, LastQuoteKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return provider.Update{}, false, nil
	}
	if err != nil {
		return provider.Update{}, false, fmt.Errorf("loading %s: %w", LastQuoteKey, err)
	}
	var u provider.Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return provider.Update{}, false, fmt.Errorf("decoding %s: %w", LastQuoteKey, err)
	}
	return u, true, nil
}

func (s *SQLite) Save(ctx context.Context, u provider.Update) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", LastQuoteKey, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		LastQuoteKey, string(b), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("saving %s: %w", LastQuoteKey, err)
	}
	return nil
}
