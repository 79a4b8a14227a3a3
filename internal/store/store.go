package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"

	"github.com/tmater/propcheck/internal/report"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store handles persistence of runs and their outcomes.
type Store struct {
	db *sql.DB
}

// Run is one execution of a suite.
type Run struct {
	ID         uuid.UUID
	Suite      string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    report.Summary
}

// New opens the Postgres database at dsn and applies pending migrations.
func New(dsn string) (*Store, error) {
	if err := migrateUp(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	log.Debug("store: database ready")
	return &Store{db: db}, nil
}

// migrateUp runs on its own connection pool since closing the migrator
// closes the database it was given.
func migrateUp(dsn string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("store: migrations source: %w", err)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("store: open: %w", err)
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("store: migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("store: migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

// SaveRun persists a run and its outcomes in one transaction. A zero run ID
// is replaced with a new one, which is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, outcomes []report.Outcome) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, suite, target, started_at, finished_at, total, passed, failed, success_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		run.ID,
		run.Suite,
		run.Target,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.Summary.Total,
		run.Summary.Passed,
		run.Summary.Failed,
		run.Summary.SuccessRate,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: insert run: %w", err)
	}

	for i, o := range outcomes {
		details, err := json.Marshal(o.Details)
		if err != nil {
			return uuid.Nil, fmt.Errorf("store: encode details of %q: %w", o.Name, err)
		}
		if o.Details == nil {
			details = []byte("{}")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO outcomes (run_id, seq, name, success, message, details, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, run.ID, i, o.Name, o.Success, o.Message, string(details), o.Timestamp.UTC())
		if err != nil {
			return uuid.Nil, fmt.Errorf("store: insert outcome: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}

// RecentRuns returns the newest runs first. An empty suite matches all suites.
func (s *Store) RecentRuns(ctx context.Context, suite string, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, suite, target, started_at, finished_at, total, passed, failed, success_rate
		FROM runs
		WHERE $1 = '' OR suite = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`, suite, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Suite, &r.Target, &r.StartedAt, &r.FinishedAt,
			&r.Summary.Total, &r.Summary.Passed, &r.Summary.Failed, &r.Summary.SuccessRate); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunOutcomes returns the outcomes of a run in the order they were recorded.
func (s *Store) RunOutcomes(ctx context.Context, runID uuid.UUID) ([]report.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, success, message, details, recorded_at
		FROM outcomes
		WHERE run_id = $1
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []report.Outcome
	for rows.Next() {
		var o report.Outcome
		var details []byte
		if err := rows.Scan(&o.Name, &o.Success, &o.Message, &details, &o.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(details, &o.Details); err != nil {
			return nil, fmt.Errorf("store: decode details of %q: %w", o.Name, err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// EvictRunsBefore deletes runs that finished before cutoff, outcomes
// included, and returns how many runs were deleted.
func (s *Store) EvictRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE finished_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
