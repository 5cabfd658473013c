// Package main provides a one-shot simulation CLI: it runs one Monte
// Carlo simulation for a portfolio given on the command line (or as a
// JSON request file) and writes report.md and bands.csv.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/marketdata"
	"portfolio-risk-lab/internal/marketdata/stub"
	"portfolio-risk-lab/internal/reporting"
	"portfolio-risk-lab/internal/simulation"
	"portfolio-risk-lab/internal/storage/memory"
)

func main() {
	portfolio := flag.String("portfolio", "", "Comma-separated TICKER:DOLLARS pairs (e.g. AAPL:60000,MSFT:40000)")
	requestFile := flag.String("request", "", "Path to a JSON simulation request (overrides --portfolio)")
	horizonYears := flag.Float64("horizon-years", 0, "Simulation horizon in years (0 = default)")
	trials := flag.Int("trials", 0, "Number of Monte Carlo trials (0 = default)")
	seed := flag.Int64("seed", 0, "Random seed (0 = default)")
	outputDir := flag.String("output-dir", "output", "Output directory for report files")
	dataBaseURL := flag.String("data-base-url", os.Getenv("MARKET_DATA_BASE_URL"), "Market data API base URL")
	apiToken := flag.String("api-token", os.Getenv("MARKET_DATA_API_TOKEN"), "Market data API token")
	useStub := flag.Bool("use-stub", false, "Use synthetic price data instead of the market data API")
	workers := flag.Int("workers", 0, "Simulation worker count (0 = one per CPU)")
	flag.Parse()

	logger := log.New(os.Stdout, "[simulate] ", log.LstdFlags|log.Lshortfile)

	req, err := buildRequest(*requestFile, *portfolio, *horizonYears, *trials, *seed)
	if err != nil {
		logger.Fatalf("Invalid request: %v", err)
	}

	if !*useStub && *dataBaseURL == "" {
		logger.Fatal("--data-base-url is required (or pass --use-stub for synthetic data)")
	}

	var provider marketdata.PriceHistoryProvider
	if *useStub {
		provider = syntheticProvider(req)
	} else {
		provider = marketdata.NewHTTPClient(*dataBaseURL, marketdata.WithAPIToken(*apiToken))
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		Provider: provider,
		RunStore: memory.NewRunStore(),
		Logger:   logger,
		Workers:  *workers,
	})

	ctx := context.Background()
	summary, err := runner.Run(ctx, req)
	if err != nil {
		logger.Fatalf("Simulation failed: %v", err)
	}

	paths, err := reporting.NewGenerator(*outputDir).Generate(summary)
	if err != nil {
		logger.Fatalf("Report generation failed: %v", err)
	}

	fmt.Printf("Run %s complete\n", summary.RunID)
	fmt.Printf("  Expected final value: $%.2f\n", summary.Aggregate.ExpectedFinalValue)
	fmt.Printf("  Median final value:   $%.2f\n", summary.Aggregate.MedianFinalValue)
	fmt.Printf("  VaR 5%%: %.2f%%  CVaR 5%%: %.2f%%  P(loss): %.2f%%\n",
		summary.Risk.VaR5*100, summary.Risk.CVaR5*100, summary.Risk.ProbNegative*100)
	for _, p := range paths {
		fmt.Printf("  Wrote %s\n", p)
	}
}

// buildRequest assembles the simulation request from a JSON file or
// the --portfolio flag plus overrides.
func buildRequest(requestFile, portfolio string, horizonYears float64, trials int, seed int64) (*domain.SimulationRequest, error) {
	var req domain.SimulationRequest

	if requestFile != "" {
		data, err := os.ReadFile(requestFile)
		if err != nil {
			return nil, fmt.Errorf("read request file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("parse request file: %w", err)
		}
	} else {
		if portfolio == "" {
			return nil, fmt.Errorf("either --request or --portfolio is required")
		}
		positions, err := parsePortfolio(portfolio)
		if err != nil {
			return nil, err
		}
		req.Positions = positions
	}

	if horizonYears != 0 {
		req.HorizonYears = horizonYears
	}
	if trials != 0 {
		req.Trials = trials
	}
	if seed != 0 {
		req.Seed = seed
	}
	return &req, nil
}

// parsePortfolio parses TICKER:DOLLARS pairs.
func parsePortfolio(s string) ([]domain.PortfolioPosition, error) {
	var positions []domain.PortfolioPosition
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed position %q, want TICKER:DOLLARS", pair)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed dollar amount in %q: %w", pair, err)
		}
		positions = append(positions, domain.PortfolioPosition{
			Ticker:       strings.ToUpper(strings.TrimSpace(parts[0])),
			DollarAmount: amount,
		})
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("no positions in %q", s)
	}
	return positions, nil
}

// syntheticProvider builds a stub provider with two years of synthetic
// daily closes for every requested ticker.
func syntheticProvider(req *domain.SimulationRequest) *stub.Provider {
	p := stub.NewProvider()
	start := time.Now().UTC().AddDate(-2, 0, 0)
	for i, pos := range req.Positions {
		// Vary drift and vol per position so correlations are not trivial.
		drift := 0.0003 + 0.0001*float64(i%3)
		vol := 0.012 + 0.002*float64(i%4)
		p.AddSynthetic(pos.Ticker, 520, start, 100+10*float64(i), drift, vol, 1000+int64(i))
	}
	return p
}
