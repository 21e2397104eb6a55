package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS save_slots (
	slot     TEXT PRIMARY KEY,
	blob     BLOB NOT NULL,
	saved_at INTEGER NOT NULL
);`

// SQLiteStore keeps save slots in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the save database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("save database path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, slot string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM save_slots WHERE slot = ?`, slot).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", slot, err)
	}
	return blob, nil
}

func (s *SQLiteStore) Put(ctx context.Context, slot string, blob []byte, savedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO save_slots (slot, blob, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET blob = excluded.blob, saved_at = excluded.saved_at`,
		slot, blob, savedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put slot %s: %w", slot, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM save_slots WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

// SlotInfo describes one stored slot.
type SlotInfo struct {
	Slot    string
	SavedAt time.Time
}

// Slots lists the stored slots, newest first.
func (s *SQLiteStore) Slots(ctx context.Context) ([]SlotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot, saved_at FROM save_slots ORDER BY saved_at DESC, slot`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var out []SlotInfo
	for rows.Next() {
		var (
			info SlotInfo
			ms   int64
		)
		if err := rows.Scan(&info.Slot, &ms); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		info.SavedAt = time.UnixMilli(ms).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}
