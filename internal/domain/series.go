package domain

import (
	"fmt"
	"math"
	"time"
)

// MinObservations is the minimum number of aligned price observations
// required before any statistical estimation is attempted.
const MinObservations = 30

// PricePoint is one daily closing price.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// AssetSeries is an ordered daily closing-price history for one ticker.
// Dates are strictly increasing and every point carries a positive price.
type AssetSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// Validate checks the series invariants: strictly increasing dates,
// positive prices, and at least MinObservations points.
func (s *AssetSeries) Validate() error {
	if s.Ticker == "" {
		return fmt.Errorf("%w: series has empty ticker", ErrInvalidInput)
	}
	if len(s.Points) < MinObservations {
		return fmt.Errorf("%w: %s has %d observations, need at least %d",
			ErrInvalidInput, s.Ticker, len(s.Points), MinObservations)
	}
	for i, p := range s.Points {
		if p.Close <= 0 || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			return fmt.Errorf("%w: %s has invalid price %v at %s",
				ErrInvalidInput, s.Ticker, p.Close, p.Date.Format("2006-01-02"))
		}
		if i > 0 && !s.Points[i-1].Date.Before(p.Date) {
			return fmt.Errorf("%w: %s dates not strictly increasing at index %d",
				ErrInvalidInput, s.Ticker, i)
		}
	}
	return nil
}

// LatestClose returns the most recent closing price.
func (s *AssetSeries) LatestClose() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Close
}

// LogReturns derives the daily log-return sequence ln(Pt / Pt-1).
// Length is len(Points)-1.
func (s *AssetSeries) LogReturns() []float64 {
	if len(s.Points) < 2 {
		return nil
	}
	returns := make([]float64, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		returns[i-1] = math.Log(s.Points[i].Close / s.Points[i-1].Close)
	}
	return returns
}

// AlignSeries trims all series to the dates present in every one of them,
// so that every asset has an equal-length history covering the same trading
// days. The intersection keeps each series' chronological order.
func AlignSeries(series []*AssetSeries) []*AssetSeries {
	if len(series) == 0 {
		return nil
	}

	// Count how many series contain each date.
	dateKey := func(t time.Time) string { return t.Format("2006-01-02") }
	counts := make(map[string]int)
	for _, s := range series {
		for _, p := range s.Points {
			counts[dateKey(p.Date)]++
		}
	}

	aligned := make([]*AssetSeries, len(series))
	for i, s := range series {
		points := make([]PricePoint, 0, len(s.Points))
		for _, p := range s.Points {
			if counts[dateKey(p.Date)] == len(series) {
				points = append(points, p)
			}
		}
		aligned[i] = &AssetSeries{Ticker: s.Ticker, Points: points}
	}
	return aligned
}
