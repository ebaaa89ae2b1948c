// Package data implements Postgres persistence for tests and test runs.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/data/pgxutil"
	"github.com/agenticqa/runner/internal/domain/model"
)

// Advisory lock namespace for the stuck-run sweep. Major key 1100 is reserved
// for recovery operations; holding the lock keeps concurrent recovery
// instances from sweeping the same runs.
const (
	advisoryLockRecoveryMajor = 1100
	advisoryLockRecoverySweep = 1
)

// RunRepo provides database operations for test runs.
type RunRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewRunRepo creates a RunRepo with the real clock.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewRunRepoWithTimeProvider creates a RunRepo with a custom clock (useful for tests).
func NewRunRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *RunRepo {
	return &RunRepo{DB: db, timeProvider: tp}
}

const runColumns = `
	id, test_id, status, started_at, completed_at, duration_ms,
	screenshots, step_results, error, error_step, created_at`

// CreateQueued inserts a new run in the queued state. A missing test id
// surfaces as model.ErrTestNotFound via the foreign key.
func (r *RunRepo) CreateQueued(ctx context.Context, runID, testID string) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO test_runs (id, test_id, status, created_at)
			VALUES ($1, $2, 'queued', $3)
		`, runID, testID, r.timeProvider.Now().UTC())
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return model.ErrTestNotFound
		}
		return fmt.Errorf("create queued run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by id, or model.ErrRunNotFound.
func (r *RunRepo) GetByID(ctx context.Context, runID string) (*model.TestRun, error) {
	var run model.TestRun
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var (
			screenshotsJSON []byte
			stepResultsJSON []byte
			errText         *string
		)
		row := conn.QueryRow(ctx, `SELECT `+runColumns+` FROM test_runs WHERE id = $1`, runID)
		if err := row.Scan(
			&run.ID, &run.TestID, &run.Status, &run.StartedAt, &run.CompletedAt,
			&run.DurationMs, &screenshotsJSON, &stepResultsJSON, &errText,
			&run.ErrorStep, &run.CreatedAt,
		); err != nil {
			return err
		}
		if errText != nil {
			run.Error = *errText
		}
		if len(screenshotsJSON) > 0 {
			if err := json.Unmarshal(screenshotsJSON, &run.Screenshots); err != nil {
				return fmt.Errorf("decode screenshots: %w", err)
			}
		}
		if len(stepResultsJSON) > 0 {
			if err := json.Unmarshal(stepResultsJSON, &run.StepResults); err != nil {
				return fmt.Errorf("decode step results: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRunNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return &run, nil
}

// MarkRunning transitions a run to running and records its start time.
// Re-marking an already running run (a redelivered job) resets the start
// time; terminal runs return model.ErrRunFinished.
func (r *RunRepo) MarkRunning(ctx context.Context, runID string, startedAt time.Time) error {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE test_runs
			SET status = 'running', started_at = $2
			WHERE id = $1 AND status IN ('queued', 'running')
		`, runID, startedAt.UTC())
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, runID); err != nil {
			return err
		}
		return model.ErrRunFinished
	}
	return nil
}

// Complete writes a run's terminal state in one atomic update: status,
// results, screenshots, duration and error detail land together. A run that
// already reached a terminal state is left untouched, which makes retried
// deliveries idempotent.
func (r *RunRepo) Complete(ctx context.Context, c model.RunCompletion) error {
	screenshotsJSON, err := json.Marshal(c.Screenshots)
	if err != nil {
		return fmt.Errorf("encode screenshots: %w", err)
	}
	stepResultsJSON, err := json.Marshal(c.StepResults)
	if err != nil {
		return fmt.Errorf("encode step results: %w", err)
	}

	var affected int64
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, execErr := conn.Exec(ctx, `
			UPDATE test_runs
			SET status = $2,
				started_at = $3,
				completed_at = $4,
				duration_ms = $5,
				screenshots = $6,
				step_results = $7,
				error = NULLIF($8, ''),
				error_step = $9
			WHERE id = $1 AND status NOT IN ('passed', 'failed')
		`, c.RunID, c.Status, c.StartedAt.UTC(), c.CompletedAt.UTC(), c.DurationMs,
			screenshotsJSON, stepResultsJSON, c.Error, c.ErrorStep)
		if execErr != nil {
			return execErr
		}
		affected = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, c.RunID); err != nil {
			return err
		}
		// Already terminal: a retried delivery finished the run earlier.
	}
	return nil
}

// FailRun force-fails a non-terminal run. Terminal runs are never
// overwritten; failing one is a no-op.
func (r *RunRepo) FailRun(ctx context.Context, p core.FailRunParams) error {
	now := r.timeProvider.Now().UTC()
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			UPDATE test_runs
			SET status = 'failed',
				started_at = COALESCE(started_at, $2),
				completed_at = $2,
				duration_ms = NULLIF($3, 0),
				error = NULLIF($4, ''),
				error_step = $5
			WHERE id = $1 AND status NOT IN ('passed', 'failed')
		`, p.RunID, now, p.DurationMs, p.Error, p.ErrorStep)
		return err
	})
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return nil
}

// FindStuck returns ids of runs stuck in the running state longer than
// maxAge. The whole sweep runs under an advisory lock so concurrent recovery
// instances do not pick up the same runs; when the lock is held elsewhere the
// sweep returns nothing.
func (r *RunRepo) FindStuck(ctx context.Context, maxAge time.Duration) ([]string, error) {
	cutoff := r.timeProvider.Now().Add(-maxAge).UTC()

	var ids []string
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx,
				"SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockRecoveryMajor, advisoryLockRecoverySweep,
			).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			rows, err := tx.QueryContext(ctx, `
				SELECT id FROM test_runs
				WHERE status = 'running' AND started_at < $1
				ORDER BY started_at
			`, cutoff)
			if err != nil {
				return fmt.Errorf("query stuck runs: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					return fmt.Errorf("scan stuck run id: %w", err)
				}
				ids = append(ids, id)
			}
			return rows.Err()
		},
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
