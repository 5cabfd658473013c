// Package main provides the history backfill CLI: it fetches daily
// closing prices for a set of tickers from the market data API and
// fills the ClickHouse bar cache, so later simulation runs hit the
// cache instead of the upstream API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"portfolio-risk-lab/internal/marketdata"
	"portfolio-risk-lab/internal/observability"
	chstore "portfolio-risk-lab/internal/storage/clickhouse"
	"portfolio-risk-lab/internal/storage/migrations"
)

func main() {
	tickers := flag.String("tickers", "", "Comma-separated tickers to backfill")
	from := flag.String("from", "", "History start date YYYY-MM-DD (default 2018-01-01)")
	dataBaseURL := flag.String("data-base-url", os.Getenv("MARKET_DATA_BASE_URL"), "Market data API base URL")
	apiToken := flag.String("api-token", os.Getenv("MARKET_DATA_API_TOKEN"), "Market data API token")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	timeout := flag.Duration("timeout", 2*time.Minute, "Per-ticker fetch timeout")
	flag.Parse()

	logger := log.New(os.Stdout, "[backfill] ", log.LstdFlags|log.Lshortfile)

	if *tickers == "" {
		logger.Fatal("--tickers is required")
	}
	if *dataBaseURL == "" {
		logger.Fatal("--data-base-url is required")
	}
	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}

	start := marketdata.DefaultWindowStart
	if *from != "" {
		parsed, err := time.Parse("2006-01-02", *from)
		if err != nil {
			logger.Fatalf("Invalid --from: %v", err)
		}
		start = parsed
	}

	list := splitTickers(*tickers)
	if len(list) == 0 {
		logger.Fatal("No tickers to backfill")
	}

	ctx := context.Background()

	conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("ClickHouse migrations: %v", err)
	}
	defer conn.Close()

	httpProvider := marketdata.NewHTTPClient(*dataBaseURL, marketdata.WithAPIToken(*apiToken))
	provider := marketdata.NewCachedProvider(httpProvider, chstore.NewBarStore(conn))

	now := time.Now().UTC()
	failed := 0
	for _, ticker := range list {
		fetchCtx, cancel := context.WithTimeout(ctx, *timeout)
		fetchStart := time.Now()
		series, err := provider.GetDailyHistory(fetchCtx, ticker, start, now)
		cancel()

		if err != nil {
			observability.RecordFetch("error", time.Since(fetchStart).Seconds())
			logger.Printf("Backfill %s failed: %v", ticker, err)
			failed++
			continue
		}

		observability.RecordFetch("success", time.Since(fetchStart).Seconds())
		logger.Printf("Backfilled %s: %d bars (%s to %s)",
			ticker, len(series.Points),
			series.Points[0].Date.Format("2006-01-02"),
			series.Points[len(series.Points)-1].Date.Format("2006-01-02"))
	}

	if failed > 0 {
		logger.Fatalf("Backfill completed with %d/%d failures", failed, len(list))
	}
	logger.Printf("Backfill complete: %d tickers", len(list))
}

// splitTickers parses the comma-separated ticker list.
func splitTickers(s string) []string {
	seen := make(map[string]bool)
	var list []string
	for _, t := range strings.Split(s, ",") {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		list = append(list, t)
	}
	return list
}
