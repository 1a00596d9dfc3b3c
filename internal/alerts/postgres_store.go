package alerts

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"loginsight/internal/risk"
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

// NewPostgresStore creates a new Postgres-backed alert store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the alerts table if it does not exist.
// Production deployments use the goose migrations instead.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			alert_id       TEXT PRIMARY KEY,
			timestamp      TIMESTAMPTZ NOT NULL,
			user_id        TEXT NOT NULL,
			event_id       TEXT NOT NULL,
			rule_triggered TEXT NOT NULL,
			risk_score     INTEGER NOT NULL,
			risk_factors   JSONB NOT NULL DEFAULT '[]',
			decision       TEXT NOT NULL,
			explanation    TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending'
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_user_id ON alerts (user_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts (timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_alerts_risk_score ON alerts (risk_score DESC)
	`)
	return err
}

const alertColumns = `alert_id, timestamp, user_id, event_id, rule_triggered,
	risk_score, risk_factors, decision, explanation, status`

func (s *PostgresStore) Insert(ctx context.Context, a *Alert) error {
	factors, err := json.Marshal(a.RiskFactors)
	if err != nil {
		return fmt.Errorf("marshal risk factors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		a.AlertID, a.Timestamp, a.UserID, a.EventID, a.RuleTriggered,
		a.RiskScore, factors, a.Decision, a.Explanation, a.Status,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateID
		}
		return dbErr("insert alert", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, alertID string) (*Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE alert_id = $1`, alertID)
	return scanAlert(row)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, alertID string, status Status) (*Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE alerts SET status = $2 WHERE alert_id = $1
		RETURNING `+alertColumns,
		alertID, status)
	return scanAlert(row)
}

func (s *PostgresStore) List(ctx context.Context, q ListQuery) ([]*Alert, int, error) {
	where := "TRUE"
	args := []any{}

	if q.Decision != "" {
		args = append(args, q.Decision)
		where += fmt.Sprintf(" AND decision = $%d", len(args))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where += fmt.Sprintf(" AND (user_id ILIKE $%d OR explanation ILIKE $%d)", len(args), len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, dbErr("count alerts", err)
	}

	args = append(args, q.Page.Limit, q.Page.Offset())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE `+where+
			fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, dbErr("list alerts", err)
	}
	defer rows.Close()

	out, err := scanAlerts(rows)
	return out, total, err
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, dbErr("list alerts by user", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (s *PostgresStore) ListHighRisk(ctx context.Context, minScore, limit int) ([]*Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE risk_score >= $1 ORDER BY risk_score DESC, timestamp DESC LIMIT $2`,
		minScore, limit)
	if err != nil {
		return nil, dbErr("list high-risk alerts", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&n); err != nil {
		return 0, dbErr("count alerts", err)
	}
	return n, nil
}

func (s *PostgresStore) CountByDecision(ctx context.Context) (map[risk.Decision]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT decision, COUNT(*) FROM alerts GROUP BY decision`)
	if err != nil {
		return nil, dbErr("count alerts by decision", err)
	}
	defer rows.Close()

	out := make(map[risk.Decision]int)
	for rows.Next() {
		var d risk.Decision
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, err
		}
		out[d] = n
	}
	return out, rows.Err()
}

func (s *PostgresStore) AverageScoreNonSuppressed(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(risk_score) FROM alerts WHERE decision <> 'suppress'`).Scan(&avg)
	if err != nil {
		return 0, dbErr("average alert score", err)
	}
	return avg.Float64, nil
}

func (s *PostgresStore) Severity(ctx context.Context) (SeverityCounts, error) {
	var out SeverityCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE risk_score < 31),
			COUNT(*) FILTER (WHERE risk_score >= 31 AND risk_score < 70),
			COUNT(*) FILTER (WHERE risk_score >= 70 AND risk_score < 90),
			COUNT(*) FILTER (WHERE risk_score >= 90)
		FROM alerts
	`).Scan(&out.Low, &out.Medium, &out.High, &out.Critical)
	if err != nil {
		return out, dbErr("severity counts", err)
	}
	return out, nil
}

func (s *PostgresStore) CountSmartPerDay(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM alerts
		WHERE decision <> 'suppress' AND timestamp >= $1
		GROUP BY 1
	`, since)
	if err != nil {
		return nil, dbErr("count smart alerts per day", err)
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

func scanAlert(row *sql.Row) (*Alert, error) {
	a := &Alert{}
	var factors []byte
	err := row.Scan(
		&a.AlertID, &a.Timestamp, &a.UserID, &a.EventID, &a.RuleTriggered,
		&a.RiskScore, &factors, &a.Decision, &a.Explanation, &a.Status,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(factors, &a.RiskFactors); err != nil {
		return nil, fmt.Errorf("unmarshal risk factors: %w", err)
	}
	return a, nil
}

func scanAlerts(rows *sql.Rows) ([]*Alert, error) {
	var out []*Alert
	for rows.Next() {
		a := &Alert{}
		var factors []byte
		if err := rows.Scan(
			&a.AlertID, &a.Timestamp, &a.UserID, &a.EventID, &a.RuleTriggered,
			&a.RiskScore, &factors, &a.Decision, &a.Explanation, &a.Status,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(factors, &a.RiskFactors); err != nil {
			return nil, fmt.Errorf("unmarshal risk factors: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
