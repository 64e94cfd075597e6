package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ethoscan/evidence-resolver/internal/resolver"
)

// RunStore persists the run ledger.
type RunStore struct {
	pool querier
}

// NewRunStore constructs a store over an existing pool.
func NewRunStore(pool querier) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RunStore{pool: pool}, nil
}

// CreateRun inserts the ledger row at invocation start.
func (s *RunStore) CreateRun(ctx context.Context, run resolver.Run) error {
	const query = `
		INSERT INTO resolution_runs (id, mode, started_at, processed, resolved, skipped, failed, notes)
		VALUES ($1, $2, $3, 0, 0, 0, 0, '')`
	if _, err := s.pool.Exec(ctx, query, run.ID, string(run.Mode), run.StartedAt); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun finalizes the ledger row with outcome counts. The row is owned
// by the invocation that created it and is never touched again afterward.
func (s *RunStore) FinishRun(
	ctx context.Context,
	runID string,
	finishedAt time.Time,
	counts resolver.RunCounts,
	notes string,
) error {
	const query = `
		UPDATE resolution_runs
		SET finished_at = $2, processed = $3, resolved = $4, skipped = $5, failed = $6, notes = $7
		WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query,
		runID,
		finishedAt,
		counts.Processed,
		counts.Resolved,
		counts.Skipped,
		counts.Failed,
		notes,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun retrieves a single run by its ID.
func (s *RunStore) GetRun(ctx context.Context, runID string) (resolver.Run, error) {
	const query = `
		SELECT id, mode, started_at, finished_at, processed, resolved, skipped, failed, notes
		FROM resolution_runs
		WHERE id = $1`

	var (
		run  resolver.Run
		mode string
	)
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&mode,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Counts.Processed,
		&run.Counts.Resolved,
		&run.Counts.Skipped,
		&run.Counts.Failed,
		&run.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return resolver.Run{}, resolver.ErrNotFound
		}
		return resolver.Run{}, fmt.Errorf("get run: %w", err)
	}
	run.Mode = resolver.Mode(mode)
	return run, nil
}
