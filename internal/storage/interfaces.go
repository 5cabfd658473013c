package storage

import (
	"context"
	"time"

	"portfolio-risk-lab/internal/domain"
)

// RunStore provides access to simulation_runs storage.
type RunStore interface {
	// Insert adds a completed run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.SimulationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error)

	// GetRecent retrieves the most recent runs, newest first, up to limit.
	GetRecent(ctx context.Context, limit int) ([]*domain.SimulationRun, error)

	// CountByTicker returns how many stored runs include ticker.
	CountByTicker(ctx context.Context, ticker string) (int, error)
}

// BarStore provides access to daily_bars storage, the local cache of
// fetched price history.
type BarStore interface {
	// InsertBulk adds daily bars. Duplicate (ticker, date) pairs fail the batch.
	InsertBulk(ctx context.Context, bars []*domain.DailyBar) error

	// GetByTicker retrieves all bars for ticker from start onward,
	// ordered by date ASC. Returns an empty slice when none exist.
	GetByTicker(ctx context.Context, ticker string, start time.Time) ([]*domain.DailyBar, error)

	// LatestDate returns the most recent bar date stored for ticker.
	// Returns ErrNotFound when no bars exist.
	LatestDate(ctx context.Context, ticker string) (time.Time, error)
}
