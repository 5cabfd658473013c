package domain

import (
	"fmt"
	"math"
)

// Trading days per year, the annualization base for all statistics.
const TradingDaysPerYear = 252

// Default simulation parameters. The fixed default seed keeps runs
// reproducible when the caller does not provide one.
const (
	DefaultHorizonYears = 1.0
	DefaultTrials       = 5000
	DefaultSeed         = 42
)

// Upper bounds on simulation size. Requests beyond these are rejected
// rather than silently truncated.
const (
	MaxTrials       = 200_000
	MaxHorizonYears = 30.0
	MaxAssets       = 50
)

// PortfolioPosition is a fixed dollar allocation to one ticker.
// Shares held are derived once from the latest known price and do not
// change over the simulated horizon.
type PortfolioPosition struct {
	Ticker       string  `json:"ticker"`
	DollarAmount float64 `json:"dollar_amount"`
}

// SimulationRequest is the single request contract of the engine.
type SimulationRequest struct {
	Positions    []PortfolioPosition `json:"positions"`
	HorizonYears float64             `json:"horizon_years,omitempty"`
	Trials       int                 `json:"trials,omitempty"`
	Seed         int64               `json:"seed,omitempty"`
}

// ApplyDefaults fills unset optional fields with the documented defaults.
func (r *SimulationRequest) ApplyDefaults() {
	if r.HorizonYears == 0 {
		r.HorizonYears = DefaultHorizonYears
	}
	if r.Trials == 0 {
		r.Trials = DefaultTrials
	}
	if r.Seed == 0 {
		r.Seed = DefaultSeed
	}
}

// Validate rejects malformed requests before any fetch or computation.
// Callers should ApplyDefaults first.
func (r *SimulationRequest) Validate() error {
	if len(r.Positions) == 0 {
		return fmt.Errorf("%w: at least one position is required", ErrInvalidInput)
	}
	if len(r.Positions) > MaxAssets {
		return fmt.Errorf("%w: %d positions exceeds maximum of %d",
			ErrInvalidInput, len(r.Positions), MaxAssets)
	}
	seen := make(map[string]struct{}, len(r.Positions))
	for i, p := range r.Positions {
		if p.Ticker == "" {
			return fmt.Errorf("%w: position %d has empty ticker", ErrInvalidInput, i)
		}
		if p.DollarAmount <= 0 || math.IsNaN(p.DollarAmount) || math.IsInf(p.DollarAmount, 0) {
			return fmt.Errorf("%w: position %s has non-positive dollar amount %v",
				ErrInvalidInput, p.Ticker, p.DollarAmount)
		}
		if _, dup := seen[p.Ticker]; dup {
			return fmt.Errorf("%w: duplicate ticker %s", ErrInvalidInput, p.Ticker)
		}
		seen[p.Ticker] = struct{}{}
	}
	if r.HorizonYears <= 0 || r.HorizonYears > MaxHorizonYears {
		return fmt.Errorf("%w: horizon %v years outside (0, %v]",
			ErrInvalidInput, r.HorizonYears, MaxHorizonYears)
	}
	if r.Trials <= 0 || r.Trials > MaxTrials {
		return fmt.Errorf("%w: trial count %d outside [1, %d]",
			ErrInvalidInput, r.Trials, MaxTrials)
	}
	return nil
}

// HorizonDays converts the horizon in years to trading days.
func (r *SimulationRequest) HorizonDays() int {
	return int(math.Round(r.HorizonYears * TradingDaysPerYear))
}

// InitialValue is the total initial portfolio value, the exact sum of
// all dollar allocations.
func (r *SimulationRequest) InitialValue() float64 {
	total := 0.0
	for _, p := range r.Positions {
		total += p.DollarAmount
	}
	return total
}

// Tickers returns the position tickers in request order.
func (r *SimulationRequest) Tickers() []string {
	out := make([]string, len(r.Positions))
	for i, p := range r.Positions {
		out[i] = p.Ticker
	}
	return out
}
