// Package eventstore persists render lifecycle events in SQLite, giving
// each invocation an auditable history.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrOpen indicates the event database could not be opened or prepared.
	ErrOpen = errors.New("open event store")
	// ErrAppend indicates recording an event failed.
	ErrAppend = errors.New("append event")
	// ErrQuery indicates reading events back failed.
	ErrQuery = errors.New("query events")
)

// Event is one recorded render lifecycle event.
type Event struct {
	ID           int64
	InvocationID string
	Type         string
	Timestamp    time.Time
	Payload      map[string]any
}

// Store persists render events.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the event database at path. Use ":memory:" for
// an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: schema: %w", ErrOpen, err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS render_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invocation_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_invocation_id ON render_events(invocation_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON render_events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records one event for invocationID.
func (s *Store) Append(ctx context.Context, invocationID, eventType string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payloadJSON []byte
	if payload != nil {
		var err error
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: marshal payload: %w", ErrAppend, err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO render_events (invocation_id, event_type, timestamp, payload) VALUES (?, ?, ?, ?)",
		invocationID, eventType, time.Now().Unix(), payloadJSON,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAppend, err)
	}
	return nil
}

// ByInvocation retrieves all events of one invocation in append order.
func (s *Store) ByInvocation(ctx context.Context, invocationID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, invocation_id, event_type, timestamp, payload FROM render_events WHERE invocation_id = ? ORDER BY id",
		invocationID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Recent retrieves the latest events, newest first, capped at limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, invocation_id, event_type, timestamp, payload FROM render_events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		var payloadJSON []byte

		if err := rows.Scan(&e.ID, &e.InvocationID, &e.Type, &ts, &payloadJSON); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrQuery, err)
		}
		e.Timestamp = time.Unix(ts, 0)
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
				return nil, fmt.Errorf("%w: unmarshal payload: %w", ErrQuery, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return events, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
