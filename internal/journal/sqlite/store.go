// Package sqlite provides a SQLite-backed journal store. Durability is
// optional: the machine never requires it, and callers that want persisted
// games wire this store in as a recorder and replay from it on the next
// session.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
	"github.com/tabletopvod/battletrace/internal/journal"
)

//go:embed schema.sql
var schema string

// Store implements journal.Store on a SQLite database.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (and initializes) a SQLite journal at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append implements journal.Store. The sequence check and insert run in one
// transaction so concurrent appenders cannot interleave.
func (s *Store) Append(ctx context.Context, battleID string, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("journal is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var last uint64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE battle_id = ?`, battleID,
	).Scan(&last)
	if err != nil {
		return event.Event{}, fmt.Errorf("query last seq: %w", err)
	}

	next := last + 1
	if evt.Seq == 0 {
		evt.Seq = next
	} else if evt.Seq != next {
		return event.Event{}, journal.ErrSequenceConflict
	}

	payload := string(evt.PayloadJSON)
	if payload == "" {
		payload = "{}"
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (
			battle_id, seq, event_id, event_type, video_timestamp,
			round, phase, player_index, payload, recorded_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		battleID, evt.Seq, evt.ID, string(evt.Type), evt.VideoTimestamp,
		evt.Round, string(evt.Phase), evt.PlayerIndex, payload,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit tx: %w", err)
	}
	return evt, nil
}

// ListEvents implements journal.Store.
func (s *Store) ListEvents(ctx context.Context, battleID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("journal is not configured")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT seq, event_id, event_type, video_timestamp, round, phase, player_index, payload
		FROM events
		WHERE battle_id = ? AND seq > ?
		ORDER BY seq
		LIMIT ?`,
		battleID, afterSeq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			evt       event.Event
			eventType string
			phaseName string
			payload   string
		)
		if err := rows.Scan(&evt.Seq, &evt.ID, &eventType, &evt.VideoTimestamp,
			&evt.Round, &phaseName, &evt.PlayerIndex, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Type = event.Type(eventType)
		evt.Phase = phase.Phase(phaseName)
		evt.PayloadJSON = []byte(payload)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LastSeq implements journal.Store.
func (s *Store) LastSeq(ctx context.Context, battleID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("journal is not configured")
	}
	var last uint64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE battle_id = ?`, battleID,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return last, nil
}
