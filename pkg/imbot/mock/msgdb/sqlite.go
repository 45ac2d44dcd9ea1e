package msgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteDatabase persists message metadata to SQLite.
type SQLiteDatabase struct {
	db  *sql.DB
	ids *idSource

	mu     sync.RWMutex
	closed bool
}

// NewSQLiteDatabase opens or creates a message database.
// The path should be a file path (e.g., "./messages.db") or ":memory:" for testing.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			sender INTEGER NOT NULL,
			subject INTEGER NOT NULL,
			kind INTEGER NOT NULL,
			time INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_messages_subject
		ON messages(kind, subject)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteDatabase{db: db, ids: newIDSource()}, nil
}

// NewMessageInfo implements Database.
func (s *SQLiteDatabase) NewMessageInfo(ctx context.Context, sender, subject int64, kind Kind) (MessageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return MessageInfo{}, ErrClosed
	}

	info := MessageInfo{Sender: sender, Subject: subject, Kind: kind, Time: now()}
	const attempts = 3
	for range attempts {
		info.ID = s.ids.next()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO messages (id, sender, subject, kind, time)
			VALUES (?, ?, ?, ?, ?)
		`, info.ID, info.Sender, info.Subject, int(info.Kind), info.Time.Unix())
		if err == nil {
			return info, nil
		}
		if !isConstraintViolation(err) {
			return MessageInfo{}, fmt.Errorf("insert message: %w", err)
		}
	}
	return MessageInfo{}, fmt.Errorf("insert message: no free id after %d attempts", attempts)
}

// Query implements Database.
func (s *SQLiteDatabase) Query(ctx context.Context, id int64) (MessageInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return MessageInfo{}, ErrClosed
	}

	info := MessageInfo{ID: id}
	var kind int
	var ts int64
	err := s.db.QueryRowContext(ctx, `
		SELECT sender, subject, kind, time FROM messages
		WHERE id = ?
	`, id).Scan(&info.Sender, &info.Subject, &kind, &ts)

	if errors.Is(err, sql.ErrNoRows) {
		return MessageInfo{}, ErrNotFound
	}
	if err != nil {
		return MessageInfo{}, fmt.Errorf("query message: %w", err)
	}
	info.Kind = Kind(kind)
	info.Time = time.Unix(ts, 0).UTC()
	return info, nil
}

// Remove implements Database.
func (s *SQLiteDatabase) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove message: %w", err)
	}
	return nil
}

// Close implements Database.
func (s *SQLiteDatabase) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ Database = (*SQLiteDatabase)(nil)
