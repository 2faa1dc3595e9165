package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"pressbot/internal/domain"
)

// SQLiteStore implements domain.SettingsStore using SQLite. Settings are
// keyed per chat so each user keeps their own preferences.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs the
// schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate settings db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			chat_id    TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (chat_id, key)
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements domain.SettingsStore.
func (s *SQLiteStore) Get(ctx context.Context, chatID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE chat_id = ? AND key = ?", chatID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.NewDomainError("settings.Get", domain.ErrSettingNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("query setting: %w", err)
	}
	return value, nil
}

// Set implements domain.SettingsStore. Existing keys are overwritten.
func (s *SQLiteStore) Set(ctx context.Context, chatID, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (chat_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, chatID, key, value, now)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// List implements domain.SettingsStore.
func (s *SQLiteStore) List(ctx context.Context, chatID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM settings WHERE chat_id = ? ORDER BY key", chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

var _ domain.SettingsStore = (*SQLiteStore)(nil)
