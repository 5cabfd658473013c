package marketdata

import (
	"context"
	"testing"
	"time"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage/memory"
)

// countingProvider wraps a fixed series and counts upstream fetches.
type countingProvider struct {
	series *domain.AssetSeries
	calls  int
}

func (p *countingProvider) GetDailyHistory(_ context.Context, ticker string, _, _ time.Time) (*domain.AssetSeries, error) {
	p.calls++
	return p.series, nil
}

func fixedSeries(ticker string, n int, last time.Time) *domain.AssetSeries {
	points := make([]domain.PricePoint, n)
	for i := range points {
		points[i] = domain.PricePoint{
			Date:  last.AddDate(0, 0, i-n+1),
			Close: 100 + float64(i),
		}
	}
	return &domain.AssetSeries{Ticker: ticker, Points: points}
}

func TestCachedProvider_MissThenHit(t *testing.T) {
	ctx := context.Background()
	to := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, -2, 0)

	upstream := &countingProvider{series: fixedSeries("AAPL", 40, to)}
	cached := NewCachedProvider(upstream, memory.NewBarStore())

	first, err := cached.GetDailyHistory(ctx, "AAPL", from, to)
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if upstream.calls != 1 {
		t.Fatalf("upstream calls after miss: got %d, want 1", upstream.calls)
	}

	second, err := cached.GetDailyHistory(ctx, "AAPL", from, to)
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	if upstream.calls != 1 {
		t.Errorf("upstream called again on a fresh cache: %d calls", upstream.calls)
	}
	if len(second.Points) != len(first.Points) {
		t.Fatalf("cache returned %d points, upstream %d", len(second.Points), len(first.Points))
	}
	for i := range first.Points {
		if !first.Points[i].Date.Equal(second.Points[i].Date) || first.Points[i].Close != second.Points[i].Close {
			t.Fatalf("point %d differs between cache and upstream", i)
		}
	}
}

func TestCachedProvider_StaleCacheRefetches(t *testing.T) {
	ctx := context.Background()
	staleEnd := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	from := staleEnd.AddDate(0, -2, 0)

	upstream := &countingProvider{series: fixedSeries("AAPL", 40, staleEnd)}
	cached := NewCachedProvider(upstream, memory.NewBarStore())

	if _, err := cached.GetDailyHistory(ctx, "AAPL", from, staleEnd); err != nil {
		t.Fatalf("warm-up fetch failed: %v", err)
	}

	// Asking for a window ending far past the cached data must go
	// upstream again.
	newEnd := staleEnd.AddDate(0, 3, 0)
	upstream.series = fixedSeries("AAPL", 100, newEnd)
	if _, err := cached.GetDailyHistory(ctx, "AAPL", from, newEnd); err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if upstream.calls != 2 {
		t.Errorf("upstream calls: got %d, want 2", upstream.calls)
	}
}
