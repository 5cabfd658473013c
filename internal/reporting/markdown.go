package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"portfolio-risk-lab/internal/domain"
)

// RenderMarkdown renders a risk summary as a Markdown report.
func RenderMarkdown(s *domain.RiskSummary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Portfolio Risk Report\n\n")
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Initial value: $%.2f | Horizon: %d trading days | Trials: %d | Seed: %d\n\n",
		s.InitialValue, s.HorizonDays, s.Trials, s.Seed))

	// Composition
	sb.WriteString("## Composition\n\n")
	sb.WriteString("| Ticker | Weight % | Allocation | Shares | Price Used |\n")
	sb.WriteString("|--------|----------|------------|--------|------------|\n")
	for _, line := range s.Composition {
		sb.WriteString(fmt.Sprintf("| %s | %.2f | $%.2f | %.4f | $%.2f |\n",
			line.Ticker, line.WeightPct, line.DollarAmount, line.Shares, line.PriceUsed))
	}
	sb.WriteString("\n")

	// Historical estimates
	sb.WriteString("## Historical Estimates (annualized)\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Portfolio Return | %.2f%% |\n", s.Historical.PortfolioReturn*100))
	sb.WriteString(fmt.Sprintf("| Portfolio Volatility | %.2f%% |\n", s.Historical.PortfolioVolatility*100))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.3f |\n", s.Historical.SharpeRatio))
	sb.WriteString("\n")
	if len(s.Historical.Assets) > 0 {
		sb.WriteString("| Ticker | Return | Volatility |\n")
		sb.WriteString("|--------|--------|------------|\n")
		for _, a := range s.Historical.Assets {
			sb.WriteString(fmt.Sprintf("| %s | %.2f%% | %.2f%% |\n", a.Ticker, a.Return*100, a.Volatility*100))
		}
		sb.WriteString("\n")
	}

	// Simulated risk
	sb.WriteString("## Simulated Risk (terminal returns)\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Mean Return | %.2f%% |\n", s.Risk.MeanReturn*100))
	sb.WriteString(fmt.Sprintf("| Median Return | %.2f%% |\n", s.Risk.MedianReturn*100))
	sb.WriteString(fmt.Sprintf("| Volatility | %.2f%% |\n", s.Risk.Volatility*100))
	sb.WriteString(fmt.Sprintf("| P(loss) | %.2f%% |\n", s.Risk.ProbNegative*100))
	sb.WriteString(fmt.Sprintf("| VaR 5%% | %.2f%% |\n", s.Risk.VaR5*100))
	sb.WriteString(fmt.Sprintf("| VaR 1%% | %.2f%% |\n", s.Risk.VaR1*100))
	sb.WriteString(fmt.Sprintf("| CVaR 5%% | %.2f%% |\n", s.Risk.CVaR5*100))
	sb.WriteString("\n")

	// Return percentiles
	if len(s.ReturnPercentiles) > 0 {
		ranks := make([]int, 0, len(s.ReturnPercentiles))
		for rank := range s.ReturnPercentiles {
			ranks = append(ranks, rank)
		}
		sort.Ints(ranks)

		sb.WriteString("## Return Percentiles\n\n")
		sb.WriteString("| Percentile | Return |\n")
		sb.WriteString("|------------|--------|\n")
		for _, rank := range ranks {
			sb.WriteString(fmt.Sprintf("| P%d | %.2f%% |\n", rank, s.ReturnPercentiles[rank]*100))
		}
		sb.WriteString("\n")
	}

	// Final values
	sb.WriteString("## Final Portfolio Value\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Expected | $%.2f |\n", s.Aggregate.ExpectedFinalValue))
	sb.WriteString(fmt.Sprintf("| Median | $%.2f |\n", s.Aggregate.MedianFinalValue))
	sb.WriteString(fmt.Sprintf("| Minimum | $%.2f |\n", s.Aggregate.MinFinalValue))
	sb.WriteString(fmt.Sprintf("| Maximum | $%.2f |\n", s.Aggregate.MaxFinalValue))
	sb.WriteString(fmt.Sprintf("| Best Return | %.2f%% |\n", s.Aggregate.BestReturn*100))
	sb.WriteString(fmt.Sprintf("| Worst Return | %.2f%% |\n", s.Aggregate.WorstReturn*100))
	sb.WriteString("\n")

	// Per-asset simulated results
	sb.WriteString("## Simulated Assets\n\n")
	if len(s.Assets) > 0 {
		sb.WriteString("| Ticker | Mean Return | Volatility | Mean Final Contribution |\n")
		sb.WriteString("|--------|-------------|------------|-------------------------|\n")
		for _, a := range s.Assets {
			sb.WriteString(fmt.Sprintf("| %s | %.2f%% | %.2f%% | $%.2f |\n",
				a.Ticker, a.MeanReturn*100, a.Volatility*100, a.MeanContribution))
		}
	} else {
		sb.WriteString("No per-asset results available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
