package simulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/linalg"
	"portfolio-risk-lab/internal/marketdata"
	"portfolio-risk-lab/internal/metrics"
	"portfolio-risk-lab/internal/stats"
	"portfolio-risk-lab/internal/storage"
)

// Runner executes simulation requests end to end.
type Runner struct {
	provider    marketdata.PriceHistoryProvider
	runStore    storage.RunStore
	sim         *PathSimulator
	logger      *log.Logger
	windowStart time.Time
}

// RunnerOptions contains configuration for creating a Runner.
// RunStore is optional; a nil store skips persistence. Workers <= 0
// means one per CPU. A zero WindowStart uses the default lookback.
type RunnerOptions struct {
	Provider    marketdata.PriceHistoryProvider
	RunStore    storage.RunStore
	Logger      *log.Logger
	Workers     int
	WindowStart time.Time
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[simulation] ", log.LstdFlags|log.Lshortfile)
	}
	windowStart := opts.WindowStart
	if windowStart.IsZero() {
		windowStart = marketdata.DefaultWindowStart
	}
	return &Runner{
		provider:    opts.Provider,
		runStore:    opts.RunStore,
		sim:         NewPathSimulator(opts.Workers),
		logger:      logger,
		windowStart: windowStart,
	}
}

// Run executes one simulation request.
// Steps:
//  1. Validate the request before any fetch or computation
//  2. Fetch history for every ticker, all-or-nothing
//  3. Align series on common dates, re-check depth
//  4. Estimate return statistics
//  5. Derive share counts from latest aligned closes
//  6. Factor the daily covariance (regularize once on failure)
//  7. Simulate trials in parallel
//  8. Aggregate into the risk summary
//  9. Persist the run record when a store is configured
//
// Failure at any step aborts the run with no partial result.
func (r *Runner) Run(ctx context.Context, req *domain.SimulationRequest) (*domain.RiskSummary, error) {
	started := time.Now()

	// 1. Validate before touching any data source
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// 2. Fetch per-ticker history
	series, err := r.fetchAll(ctx, req.Tickers())
	if err != nil {
		return nil, err
	}

	// 3. Align on the common date set
	aligned := domain.AlignSeries(series)

	// 4. Estimate once; statistics are immutable for the rest of the run
	est, err := stats.Estimate(aligned)
	if err != nil {
		if errors.Is(err, stats.ErrInsufficientData) || errors.Is(err, stats.ErrLengthMismatch) {
			return nil, fmt.Errorf("%w: %v", marketdata.ErrDataUnavailable, err)
		}
		return nil, err
	}

	// 5. Fixed share counts from the latest aligned close
	numAssets := len(aligned)
	allocations := make([]float64, numAssets)
	startPrices := make([]float64, numAssets)
	shares := make([]float64, numAssets)
	for i, s := range aligned {
		allocations[i] = req.Positions[i].DollarAmount
		startPrices[i] = s.LatestClose()
		shares[i] = allocations[i] / startPrices[i]
	}

	// 6. Factor the daily covariance
	chol, err := linalg.Factor(est.DailyCov)
	if err != nil {
		return nil, err
	}

	// 7. Simulate
	result, err := r.sim.Simulate(ctx, PathParams{
		StartPrices:  startPrices,
		Shares:       shares,
		DailyMean:    est.DailyMean,
		DailyVar:     est.DailyVariances(),
		Chol:         chol,
		InitialValue: req.InitialValue(),
		HorizonDays:  req.HorizonDays(),
		Trials:       req.Trials,
		Seed:         req.Seed,
	})
	if err != nil {
		return nil, err
	}

	// 8. Aggregate
	summary, err := metrics.Aggregate(metrics.AggregateParams{
		Values:         result.Values,
		TerminalPrices: result.TerminalPrices,
		InitialValue:   req.InitialValue(),
		Allocations:    allocations,
		Shares:         shares,
		StartPrices:    startPrices,
		Stats:          est,
	})
	if err != nil {
		return nil, err
	}
	summary.RunID = uuid.NewString()
	summary.GeneratedAt = time.Now().UTC()
	summary.Seed = req.Seed

	duration := time.Since(started)

	// 9. Persist the run record
	if r.runStore != nil {
		record := recordFromSummary(summary, est.Tickers, duration)
		if err := r.runStore.Insert(ctx, record); err != nil {
			return nil, fmt.Errorf("persist run %s: %w", summary.RunID, err)
		}
	}

	r.logger.Printf("run %s: %d assets, %d days, %d trials, %d observations, %s",
		summary.RunID, numAssets, summary.HorizonDays, summary.Trials, est.Observations, duration.Round(time.Millisecond))

	return summary, nil
}

// fetchAll retrieves history for every ticker concurrently. Any failure
// or invalid series fails the whole fetch.
func (r *Runner) fetchAll(ctx context.Context, tickers []string) ([]*domain.AssetSeries, error) {
	out := make([]*domain.AssetSeries, len(tickers))
	now := time.Now().UTC()

	g, ctx := errgroup.WithContext(ctx)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			series, err := r.provider.GetDailyHistory(ctx, ticker, r.windowStart, now)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", ticker, err)
			}
			if err := series.Validate(); err != nil {
				return fmt.Errorf("%w: %s: %v", marketdata.ErrDataUnavailable, ticker, err)
			}
			out[i] = series
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func recordFromSummary(s *domain.RiskSummary, tickers []string, duration time.Duration) *domain.SimulationRun {
	return &domain.SimulationRun{
		RunID:              s.RunID,
		CreatedAt:          s.GeneratedAt,
		Tickers:            tickers,
		InitialValue:       s.InitialValue,
		HorizonDays:        s.HorizonDays,
		Trials:             s.Trials,
		Seed:               s.Seed,
		MeanReturn:         s.Risk.MeanReturn,
		MedianReturn:       s.Risk.MedianReturn,
		Volatility:         s.Risk.Volatility,
		ProbNegative:       s.Risk.ProbNegative,
		VaR5:               s.Risk.VaR5,
		VaR1:               s.Risk.VaR1,
		CVaR5:              s.Risk.CVaR5,
		ExpectedFinalValue: s.Aggregate.ExpectedFinalValue,
		DurationMs:         duration.Milliseconds(),
	}
}
