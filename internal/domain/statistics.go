package domain

// ReturnStatistics holds the per-asset return estimates and cross-asset
// dependence structure computed once per run from aligned histories.
// The daily covariance is the canonical representation used by the
// simulator; annualized figures are derived from it for reporting only.
type ReturnStatistics struct {
	Tickers []string

	// Per-asset, indexed like Tickers.
	DailyMean     []float64 // mean daily log-return
	AnnualMean    []float64 // DailyMean * 252
	AnnualVol     []float64 // sample stddev of daily returns * sqrt(252)
	Observations  int       // aligned return observations per asset
	Correlation   [][]float64
	DailyCov      [][]float64 // canonical
	AnnualizedCov [][]float64 // DailyCov * 252, reporting only
}

// NumAssets returns the asset count n; all matrices are n x n.
func (s *ReturnStatistics) NumAssets() int {
	return len(s.Tickers)
}

// DailyVariances returns the diagonal of the canonical daily covariance.
func (s *ReturnStatistics) DailyVariances() []float64 {
	out := make([]float64, len(s.DailyCov))
	for i := range s.DailyCov {
		out[i] = s.DailyCov[i][i]
	}
	return out
}
