package profile

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
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

// NewPostgresStore creates a new Postgres-backed profile store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, userID string, obs Observation) (*BehavioralProfile, bool, error) {
	p := NewBaseline(obs)

	devices, locations, err := marshalSets(p)
	if err != nil {
		return nil, false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles
			(user_id, mean_hour, std_dev_hour, range_start, range_end, timezone,
			 devices, locations, total_logins, first_login, account_age_days,
			 last_updated, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO NOTHING
	`,
		p.UserID, p.LoginHours.Mean, p.LoginHours.StdDev,
		p.LoginHours.TypicalRange[0], p.LoginHours.TypicalRange[1], p.LoginHours.Timezone,
		devices, locations,
		p.Statistics.TotalLogins, p.Statistics.FirstLogin, p.Statistics.AccountAgeDays,
		p.LastUpdated, p.Version,
	)
	if err != nil {
		return nil, false, dbErr("insert profile", err)
	}

	if n, _ := res.RowsAffected(); n == 1 {
		return p, true, nil
	}

	// Lost the creation race (or the profile already existed): fetch the winner.
	existing, err := s.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*BehavioralProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, mean_hour, std_dev_hour, range_start, range_end, timezone,
		       devices, locations, total_logins, first_login, account_age_days,
		       last_updated, version
		FROM user_profiles
		WHERE user_id = $1
	`, userID)
	return scanProfile(row)
}

func (s *PostgresStore) Update(ctx context.Context, p *BehavioralProfile) error {
	devices, locations, err := marshalSets(p)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE user_profiles SET
			mean_hour = $2, std_dev_hour = $3, range_start = $4, range_end = $5,
			timezone = $6, devices = $7, locations = $8, total_logins = $9,
			first_login = $10, account_age_days = $11, last_updated = $12,
			version = version + 1
		WHERE user_id = $1 AND version = $13
	`,
		p.UserID, p.LoginHours.Mean, p.LoginHours.StdDev,
		p.LoginHours.TypicalRange[0], p.LoginHours.TypicalRange[1], p.LoginHours.Timezone,
		devices, locations,
		p.Statistics.TotalLogins, p.Statistics.FirstLogin, p.Statistics.AccountAgeDays,
		p.LastUpdated, p.Version,
	)
	if err != nil {
		return dbErr("update profile", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		p.Version++
		return nil
	}

	// Zero rows: either the token is stale or the row is gone.
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_profiles WHERE user_id = $1)`, p.UserID,
	).Scan(&exists); err != nil {
		return dbErr("check profile exists", err)
	}
	if exists {
		return ErrConflict
	}
	return ErrNotFound
}

func (s *PostgresStore) Upsert(ctx context.Context, p *BehavioralProfile) error {
	if p.Version == 0 {
		p.Version = 1
	}
	devices, locations, err := marshalSets(p)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_profiles
			(user_id, mean_hour, std_dev_hour, range_start, range_end, timezone,
			 devices, locations, total_logins, first_login, account_age_days,
			 last_updated, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO UPDATE SET
			mean_hour = EXCLUDED.mean_hour,
			std_dev_hour = EXCLUDED.std_dev_hour,
			range_start = EXCLUDED.range_start,
			range_end = EXCLUDED.range_end,
			timezone = EXCLUDED.timezone,
			devices = EXCLUDED.devices,
			locations = EXCLUDED.locations,
			total_logins = EXCLUDED.total_logins,
			first_login = EXCLUDED.first_login,
			account_age_days = EXCLUDED.account_age_days,
			last_updated = EXCLUDED.last_updated,
			version = user_profiles.version + 1
	`,
		p.UserID, p.LoginHours.Mean, p.LoginHours.StdDev,
		p.LoginHours.TypicalRange[0], p.LoginHours.TypicalRange[1], p.LoginHours.Timezone,
		devices, locations,
		p.Statistics.TotalLogins, p.Statistics.FirstLogin, p.Statistics.AccountAgeDays,
		p.LastUpdated, p.Version,
	)
	if err != nil {
		return dbErr("upsert profile", err)
	}
	return nil
}

// Migrate creates the profiles table if it does not exist.
// Production deployments use the goose migrations instead.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id          TEXT PRIMARY KEY,
			mean_hour        DOUBLE PRECISION NOT NULL,
			std_dev_hour     DOUBLE PRECISION NOT NULL,
			range_start      DOUBLE PRECISION NOT NULL,
			range_end        DOUBLE PRECISION NOT NULL,
			timezone         TEXT NOT NULL DEFAULT 'UTC',
			devices          JSONB NOT NULL DEFAULT '[]',
			locations        JSONB NOT NULL DEFAULT '[]',
			total_logins     INTEGER NOT NULL DEFAULT 1,
			first_login      TIMESTAMPTZ NOT NULL,
			account_age_days INTEGER NOT NULL DEFAULT 0,
			last_updated     TIMESTAMPTZ NOT NULL,
			version          BIGINT NOT NULL DEFAULT 1
		)
	`)
	return err
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_profiles`).Scan(&n); err != nil {
		return 0, dbErr("count profiles", err)
	}
	return n, nil
}

func marshalSets(p *BehavioralProfile) ([]byte, []byte, error) {
	devices, err := json.Marshal(p.Devices)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal devices: %w", err)
	}
	locations, err := json.Marshal(p.Locations)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal locations: %w", err)
	}
	return devices, locations, nil
}

func scanProfile(row *sql.Row) (*BehavioralProfile, error) {
	p := &BehavioralProfile{}
	var devices, locations []byte
	err := row.Scan(
		&p.UserID, &p.LoginHours.Mean, &p.LoginHours.StdDev,
		&p.LoginHours.TypicalRange[0], &p.LoginHours.TypicalRange[1], &p.LoginHours.Timezone,
		&devices, &locations,
		&p.Statistics.TotalLogins, &p.Statistics.FirstLogin, &p.Statistics.AccountAgeDays,
		&p.LastUpdated, &p.Version,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dbErr("scan profile", err)
	}

	if err := json.Unmarshal(devices, &p.Devices); err != nil {
		return nil, fmt.Errorf("unmarshal devices: %w", err)
	}
	if err := json.Unmarshal(locations, &p.Locations); err != nil {
		return nil, fmt.Errorf("unmarshal locations: %w", err)
	}
	return p, nil
}
