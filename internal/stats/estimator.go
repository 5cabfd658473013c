// Package stats estimates per-asset return statistics and the cross-asset
// dependence structure from aligned daily price histories.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"portfolio-risk-lab/internal/domain"
)

// Estimator errors. Both indicate unusable history rather than a malformed
// request; callers surface them as data failures for the whole run.
var (
	ErrInsufficientData = errors.New("insufficient aligned observations")
	ErrLengthMismatch   = errors.New("series lengths disagree")
)

// Estimate computes domain.ReturnStatistics from aligned price series.
// All series must have equal length and at least domain.MinObservations
// points. The daily covariance is canonical; annualized mean, volatility
// and covariance are derived from daily figures for reporting.
func Estimate(series []*domain.AssetSeries) (*domain.ReturnStatistics, error) {
	n := len(series)
	if n == 0 {
		return nil, fmt.Errorf("%w: no series", ErrInsufficientData)
	}

	length := len(series[0].Points)
	for _, s := range series {
		if len(s.Points) != length {
			return nil, fmt.Errorf("%w: %s has %d observations, %s has %d",
				ErrLengthMismatch, series[0].Ticker, length, s.Ticker, len(s.Points))
		}
	}
	if length < domain.MinObservations {
		return nil, fmt.Errorf("%w: %d aligned observations, need at least %d",
			ErrInsufficientData, length, domain.MinObservations)
	}

	returns := make([][]float64, n)
	tickers := make([]string, n)
	for i, s := range series {
		returns[i] = s.LogReturns()
		tickers[i] = s.Ticker
	}

	out := &domain.ReturnStatistics{
		Tickers:       tickers,
		DailyMean:     make([]float64, n),
		AnnualMean:    make([]float64, n),
		AnnualVol:     make([]float64, n),
		Observations:  length - 1,
		Correlation:   make([][]float64, n),
		DailyCov:      make([][]float64, n),
		AnnualizedCov: make([][]float64, n),
	}

	variances := make([]float64, n)
	for i := range returns {
		out.DailyMean[i] = stat.Mean(returns[i], nil)
		out.AnnualMean[i] = out.DailyMean[i] * domain.TradingDaysPerYear

		sd := stat.StdDev(returns[i], nil)
		variances[i] = sd * sd
		out.AnnualVol[i] = sd * math.Sqrt(domain.TradingDaysPerYear)
	}

	for i := 0; i < n; i++ {
		out.Correlation[i] = make([]float64, n)
		out.DailyCov[i] = make([]float64, n)
		out.AnnualizedCov[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov := stat.Covariance(returns[i], returns[j], nil)
			out.DailyCov[i][j] = cov
			out.DailyCov[j][i] = cov
			out.AnnualizedCov[i][j] = cov * domain.TradingDaysPerYear
			out.AnnualizedCov[j][i] = out.AnnualizedCov[i][j]

			corr := correlation(returns[i], returns[j], variances[i], variances[j], i == j)
			out.Correlation[i][j] = corr
			out.Correlation[j][i] = corr
		}
	}

	return out, nil
}

// correlation is the Pearson correlation of two return series. A constant
// series has no defined correlation; it is reported as 0, including on its
// own diagonal entry (the diagonal is 1 only for nonzero-variance assets).
func correlation(x, y []float64, varX, varY float64, diagonal bool) float64 {
	if varX == 0 || varY == 0 {
		return 0
	}
	if diagonal {
		return 1
	}
	return stat.Correlation(x, y, nil)
}
