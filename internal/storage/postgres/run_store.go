package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, created_at, tickers, initial_value, horizon_days, trials, seed,
	mean_return, median_return, volatility, prob_negative,
	var_5, var_1, cvar_5, expected_final_value, duration_ms
`

// Insert adds a completed run record. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, run *domain.SimulationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO simulation_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := s.pool.Exec(ctx, query,
		run.RunID, run.CreatedAt, run.Tickers, run.InitialValue, run.HorizonDays, run.Trials, run.Seed,
		run.MeanReturn, run.MedianReturn, run.Volatility, run.ProbNegative,
		run.VaR5, run.VaR1, run.CVaR5, run.ExpectedFinalValue, run.DurationMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	query := `SELECT ` + runColumns + ` FROM simulation_runs WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get simulation run by id: %w", err)
	}
	return run, nil
}

// GetRecent retrieves the most recent runs, newest first, up to limit.
func (s *RunStore) GetRecent(ctx context.Context, limit int) ([]*domain.SimulationRun, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + runColumns + `
		FROM simulation_runs
		ORDER BY created_at DESC, run_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent simulation runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// CountByTicker returns how many stored runs include ticker.
func (s *RunStore) CountByTicker(ctx context.Context, ticker string) (int, error) {
	if ticker == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `SELECT count(*) FROM simulation_runs WHERE $1 = ANY(tickers)`

	var count int
	if err := s.pool.QueryRow(ctx, query, ticker).Scan(&count); err != nil {
		return 0, fmt.Errorf("count simulation runs by ticker: %w", err)
	}
	return count, nil
}

// scanRun scans a single row into a SimulationRun.
func scanRun(row pgx.Row) (*domain.SimulationRun, error) {
	var run domain.SimulationRun

	err := row.Scan(
		&run.RunID, &run.CreatedAt, &run.Tickers, &run.InitialValue, &run.HorizonDays, &run.Trials, &run.Seed,
		&run.MeanReturn, &run.MedianReturn, &run.Volatility, &run.ProbNegative,
		&run.VaR5, &run.VaR1, &run.CVaR5, &run.ExpectedFinalValue, &run.DurationMs,
	)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// scanRuns scans multiple rows into a slice of SimulationRun.
func scanRuns(rows pgx.Rows) ([]*domain.SimulationRun, error) {
	var runs []*domain.SimulationRun

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation run rows: %w", err)
	}

	return runs, nil
}
