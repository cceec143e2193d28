package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/luna/internal/core/domain"
)

// RunRepo implements storage.RunRepository using PostgreSQL.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new PostgreSQL run repository.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

type runRow struct {
	ID           string       `db:"id"`
	Host         string       `db:"host"`
	Status       string       `db:"status"`
	SuccessRatio float64      `db:"success_ratio"`
	Outcomes     []byte       `db:"outcomes"`
	Errors       []byte       `db:"errors"`
	Warnings     []byte       `db:"warnings"`
	StartedAt    time.Time    `db:"started_at"`
	EndedAt      sql.NullTime `db:"ended_at"`
}

const selectRuns = `
	SELECT id, host, status, success_ratio, outcomes, errors, warnings, started_at, ended_at
	FROM install_runs
`

// Save upserts a run.
func (r *RunRepo) Save(ctx context.Context, run *domain.Run) error {
	outcomes, err := json.Marshal(nonNil(run.Outcomes))
	if err != nil {
		return fmt.Errorf("failed to marshal outcomes: %w", err)
	}
	errs, err := json.Marshal(nonNil(run.Errors))
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}
	warnings, err := json.Marshal(nonNil(run.Warnings))
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	query := `
		INSERT INTO install_runs (id, host, status, success_ratio, outcomes, errors, warnings, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			success_ratio = EXCLUDED.success_ratio,
			outcomes = EXCLUDED.outcomes,
			errors = EXCLUDED.errors,
			warnings = EXCLUDED.warnings,
			ended_at = EXCLUDED.ended_at
	`
	endedAt := sql.NullTime{Time: run.EndedAt, Valid: !run.EndedAt.IsZero()}

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.Host,
		string(run.Status),
		run.SuccessRatio,
		string(outcomes),
		string(errs),
		string(warnings),
		run.StartedAt,
		endedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get returns a run by id.
func (r *RunRepo) Get(ctx context.Context, id string) (*domain.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, selectRuns+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return row.toDomain()
}

// List returns runs newest first.
func (r *RunRepo) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	query := selectRuns + ` ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*domain.Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// DeleteOlderThan removes runs started before the given time.
func (r *RunRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM install_runs WHERE started_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying database.
func (r *RunRepo) Close() error {
	return r.db.Close()
}

func (row runRow) toDomain() (*domain.Run, error) {
	run := &domain.Run{
		ID:           row.ID,
		Host:         row.Host,
		Status:       domain.RunStatus(row.Status),
		SuccessRatio: row.SuccessRatio,
		StartedAt:    row.StartedAt,
	}
	if row.EndedAt.Valid {
		run.EndedAt = row.EndedAt.Time
	}
	if err := json.Unmarshal(row.Outcomes, &run.Outcomes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outcomes of run %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Errors, &run.Errors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal errors of run %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Warnings, &run.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings of run %s: %w", row.ID, err)
	}
	return run, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
