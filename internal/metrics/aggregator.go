package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"portfolio-risk-lab/internal/domain"
)

// ReturnPercentileRanks is the terminal-return percentile grid reported
// with every run.
var ReturnPercentileRanks = []int{1, 5, 10, 25, 50, 75, 90, 95, 99}

// AggregateParams carries one finished simulation into the aggregator.
// Values is indexed [day][trial] with day 0 the initial value;
// TerminalPrices is indexed [asset][trial]. Per-asset slices are
// indexed like Stats.Tickers.
type AggregateParams struct {
	Values         [][]float64
	TerminalPrices [][]float64
	InitialValue   float64
	Allocations    []float64
	Shares         []float64
	StartPrices    []float64
	Stats          *domain.ReturnStatistics
}

// Aggregate reduces raw trial output to the reported summary: per-day
// percentile bands, terminal risk metrics, aggregate and per-asset
// statistics, the composition snapshot, and the historical estimates
// the run was parameterized with. Run identity fields are left for the
// caller to fill.
func Aggregate(p AggregateParams) (*domain.RiskSummary, error) {
	if len(p.Values) == 0 || len(p.Values[0]) == 0 {
		return nil, fmt.Errorf("%w: no trial values to aggregate", domain.ErrInvalidInput)
	}
	if p.InitialValue <= 0 {
		return nil, fmt.Errorf("%w: non-positive initial value %v", domain.ErrInvalidInput, p.InitialValue)
	}

	summary := &domain.RiskSummary{
		InitialValue: p.InitialValue,
		HorizonDays:  len(p.Values) - 1,
		Trials:       len(p.Values[0]),
		Bands:        computeBands(p.Values),
	}

	final := sortedCopy(p.Values[len(p.Values)-1])
	returns := make([]float64, len(final))
	negative := 0
	for i, v := range final {
		returns[i] = v/p.InitialValue - 1
		if returns[i] < 0 {
			negative++
		}
	}

	summary.Risk = computeRisk(returns, negative)
	summary.Aggregate = domain.AggregateStats{
		ExpectedFinalValue: stat.Mean(final, nil),
		MedianFinalValue:   computePercentile(final, 0.50),
		MinFinalValue:      final[0],
		MaxFinalValue:      final[len(final)-1],
		BestReturn:         returns[len(returns)-1],
		WorstReturn:        returns[0],
	}

	summary.ReturnPercentiles = make(map[int]float64, len(ReturnPercentileRanks))
	for _, rank := range ReturnPercentileRanks {
		summary.ReturnPercentiles[rank] = computePercentile(returns, float64(rank)/100)
	}

	summary.Assets = computeAssetResults(p)
	summary.Composition = computeComposition(p)
	summary.Historical = computeHistorical(p.Allocations, p.Stats)

	return summary, nil
}

// computeBands extracts the 5/25/50/75/95 portfolio-value percentiles
// for every day including day 0.
func computeBands(values [][]float64) domain.PercentileBands {
	days := len(values)
	bands := domain.PercentileBands{
		P5:  make([]float64, days),
		P25: make([]float64, days),
		P50: make([]float64, days),
		P75: make([]float64, days),
		P95: make([]float64, days),
	}
	for day, trials := range values {
		sorted := sortedCopy(trials)
		bands.P5[day] = computePercentile(sorted, 0.05)
		bands.P25[day] = computePercentile(sorted, 0.25)
		bands.P50[day] = computePercentile(sorted, 0.50)
		bands.P75[day] = computePercentile(sorted, 0.75)
		bands.P95[day] = computePercentile(sorted, 0.95)
	}
	return bands
}

// computeRisk summarizes the terminal-return distribution. returns must
// be sorted ASC (they are, being a monotone map of sorted final values).
func computeRisk(returns []float64, negative int) domain.RiskMetrics {
	risk := domain.RiskMetrics{
		MeanReturn:   stat.Mean(returns, nil),
		MedianReturn: computePercentile(returns, 0.50),
		Volatility:   stat.PopStdDev(returns, nil),
		ProbNegative: float64(negative) / float64(len(returns)),
		VaR5:         computePercentile(returns, 0.05),
		VaR1:         computePercentile(returns, 0.01),
	}

	// Expected shortfall: mean of the tail at or below VaR@5.
	tailSum, tailN := 0.0, 0
	for _, r := range returns {
		if r > risk.VaR5 {
			break
		}
		tailSum += r
		tailN++
	}
	if tailN > 0 {
		risk.CVaR5 = tailSum / float64(tailN)
	} else {
		risk.CVaR5 = risk.VaR5
	}
	return risk
}

// computeAssetResults summarizes each asset's simulated terminal price
// distribution relative to its starting price.
func computeAssetResults(p AggregateParams) []domain.AssetResult {
	out := make([]domain.AssetResult, len(p.TerminalPrices))
	for a, prices := range p.TerminalPrices {
		returns := make([]float64, len(prices))
		for i, price := range prices {
			returns[i] = price/p.StartPrices[a] - 1
		}
		out[a] = domain.AssetResult{
			Ticker:           p.Stats.Tickers[a],
			MeanReturn:       stat.Mean(returns, nil),
			Volatility:       stat.PopStdDev(returns, nil),
			MeanContribution: p.Shares[a] * stat.Mean(prices, nil),
		}
	}
	return out
}

func computeComposition(p AggregateParams) []domain.CompositionLine {
	out := make([]domain.CompositionLine, len(p.Allocations))
	for a, alloc := range p.Allocations {
		out[a] = domain.CompositionLine{
			Ticker:       p.Stats.Tickers[a],
			WeightPct:    alloc / p.InitialValue * 100,
			DollarAmount: alloc,
			Shares:       p.Shares[a],
			PriceUsed:    p.StartPrices[a],
		}
	}
	return out
}

// computeHistorical reports the annualized estimates behind the run:
// portfolio return w·mu, portfolio volatility sqrt(w' Sigma w), and the
// Sharpe ratio at a 0% risk-free rate.
func computeHistorical(allocations []float64, stats *domain.ReturnStatistics) domain.HistoricalStats {
	total := 0.0
	for _, alloc := range allocations {
		total += alloc
	}
	weights := make([]float64, len(allocations))
	for a, alloc := range allocations {
		weights[a] = alloc / total
	}

	ret := 0.0
	variance := 0.0
	for i, wi := range weights {
		ret += wi * stats.AnnualMean[i]
		for j, wj := range weights {
			variance += wi * wj * stats.AnnualizedCov[i][j]
		}
	}
	vol := math.Sqrt(math.Max(variance, 0))

	hist := domain.HistoricalStats{
		PortfolioReturn:     ret,
		PortfolioVolatility: vol,
		Assets:              make([]domain.AssetFigure, len(stats.Tickers)),
	}
	if vol > 0 {
		hist.SharpeRatio = ret / vol
	}
	for a, ticker := range stats.Tickers {
		hist.Assets[a] = domain.AssetFigure{
			Ticker:     ticker,
			Return:     stats.AnnualMean[a],
			Volatility: stats.AnnualVol[a],
		}
	}
	return hist
}
