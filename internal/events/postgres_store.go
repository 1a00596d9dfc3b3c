package events

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// dbErr tags connection-level failures as ErrUnavailable so callers can
// tell a store outage from a data error.
func dbErr(op string, err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres-backed event store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the events table if it does not exist.
// Production deployments use the goose migrations instead.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			event_id   TEXT PRIMARY KEY,
			timestamp  TIMESTAMPTZ NOT NULL,
			user_id    TEXT NOT NULL,
			event_type TEXT NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}'
		);
		CREATE INDEX IF NOT EXISTS idx_events_user_id ON events (user_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp DESC)
	`)
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, e *Event) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, timestamp, user_id, event_type, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, e.EventID, e.Timestamp, e.UserID, e.EventType, metadata)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateID
		}
		return dbErr("insert event", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, q ListQuery) ([]*Event, int, error) {
	where := "TRUE"
	args := []any{}

	if q.UserID != "" {
		args = append(args, q.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if q.EventType != "" {
		args = append(args, q.EventType)
		where += fmt.Sprintf(" AND event_type = $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, dbErr("count events", err)
	}

	args = append(args, q.Page.Limit, q.Page.Offset())
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, timestamp, user_id, event_type, metadata
		 FROM events WHERE `+where+
			fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, dbErr("list events", err)
	}
	defer rows.Close()

	out, err := scanEvents(rows)
	return out, total, err
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, timestamp, user_id, event_type, metadata
		FROM events
		WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, dbErr("list events by user", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, dbErr("count events", err)
	}
	return n, nil
}

func (s *PostgresStore) CountPerDay(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM events
		WHERE timestamp >= $1
		GROUP BY 1
	`, since)
	if err != nil {
		return nil, dbErr("count events per day", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out[day] = n
	}
	return out, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var out []*Event
	for rows.Next() {
		e := &Event{}
		var metadata []byte
		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.UserID, &e.EventType, &metadata); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
