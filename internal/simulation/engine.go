package simulation

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"portfolio-risk-lab/internal/domain"
)

// PathParams are the inputs of one simulation: per-asset parameters
// indexed identically, plus run shape. DailyVar comes straight from the
// estimator; regularization applies only to the Cholesky factor.
type PathParams struct {
	StartPrices  []float64   // latest close per asset
	Shares       []float64   // fixed share count per asset
	DailyMean    []float64   // mean daily log-return per asset
	DailyVar     []float64   // daily return variance per asset
	Chol         [][]float64 // lower-triangular factor of the daily covariance
	InitialValue float64     // exact sum of dollar allocations
	HorizonDays  int
	Trials       int
	Seed         int64
}

// PathResult is the raw output of all trials. Values is indexed
// [day][trial] with day 0 equal to the initial value in every trial;
// TerminalPrices is indexed [asset][trial].
type PathResult struct {
	Values         [][]float64
	TerminalPrices [][]float64
}

// PathSimulator evolves portfolio value paths under geometric Brownian
// motion with cross-asset correlated shocks.
type PathSimulator struct {
	workers int
}

// NewPathSimulator creates a simulator running trials across workers
// goroutines. workers <= 0 means one per CPU.
func NewPathSimulator(workers int) *PathSimulator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &PathSimulator{workers: workers}
}

// Simulate runs all trials and collects the value matrix and terminal
// prices. Trials are split into contiguous chunks across workers; each
// trial draws from its own seeded stream, so the output depends only on
// the parameters and seed, never on scheduling. Cancelling ctx aborts
// the run with no partial result.
func (s *PathSimulator) Simulate(ctx context.Context, p PathParams) (*PathResult, error) {
	n := len(p.StartPrices)
	if n == 0 || len(p.Shares) != n || len(p.DailyMean) != n || len(p.DailyVar) != n || len(p.Chol) != n {
		return nil, fmt.Errorf("%w: mismatched parameter lengths", domain.ErrInvalidInput)
	}
	if p.HorizonDays <= 0 || p.Trials <= 0 {
		return nil, fmt.Errorf("%w: horizon %d days, %d trials", domain.ErrInvalidInput, p.HorizonDays, p.Trials)
	}

	// Per-asset drift and diffusion scale, fixed across days and trials.
	drift := make([]float64, n)
	vol := make([]float64, n)
	for a := 0; a < n; a++ {
		drift[a] = p.DailyMean[a] - 0.5*p.DailyVar[a]
		vol[a] = math.Sqrt(p.DailyVar[a])
	}

	result := &PathResult{
		Values:         make([][]float64, p.HorizonDays+1),
		TerminalPrices: make([][]float64, n),
	}
	for day := range result.Values {
		result.Values[day] = make([]float64, p.Trials)
	}
	for a := range result.TerminalPrices {
		result.TerminalPrices[a] = make([]float64, p.Trials)
	}

	g, ctx := errgroup.WithContext(ctx)
	chunk := (p.Trials + s.workers - 1) / s.workers
	for start := 0; start < p.Trials; start += chunk {
		start := start
		end := start + chunk
		if end > p.Trials {
			end = p.Trials
		}
		g.Go(func() error {
			price := make([]float64, n)
			for trial := start; trial < end; trial++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				if err := s.runTrial(p, drift, vol, price, trial, result); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// runTrial evolves one price path over the horizon and records the
// portfolio value per day plus terminal prices. price is a caller-owned
// scratch buffer of length numAssets.
func (s *PathSimulator) runTrial(p PathParams, drift, vol, price []float64, trial int, result *PathResult) error {
	gen := newShockGenerator(p.Chol, trialSeed(p.Seed, trial))
	copy(price, p.StartPrices)
	result.Values[0][trial] = p.InitialValue

	for day := 1; day <= p.HorizonDays; day++ {
		shocks := gen.Next()
		value := 0.0
		for a := range price {
			price[a] *= math.Exp(drift[a] + vol[a]*shocks[a])
			value += p.Shares[a] * price[a]
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: non-finite portfolio value at trial %d day %d",
				domain.ErrNumerical, trial, day)
		}
		result.Values[day][trial] = value
	}
	for a := range price {
		result.TerminalPrices[a][trial] = price[a]
	}
	return nil
}
