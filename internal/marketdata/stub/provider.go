package stub

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/marketdata"
)

// Provider implements marketdata.PriceHistoryProvider for testing and
// offline runs.
type Provider struct {
	Series map[string]*domain.AssetSeries
}

// NewProvider creates an empty stub provider.
func NewProvider() *Provider {
	return &Provider{
		Series: make(map[string]*domain.AssetSeries),
	}
}

// GetDailyHistory serves the stored series for ticker, cut to [from, to].
func (p *Provider) GetDailyHistory(_ context.Context, ticker string, from, to time.Time) (*domain.AssetSeries, error) {
	series, ok := p.Series[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: unknown ticker %s", marketdata.ErrDataUnavailable, ticker)
	}

	points := make([]domain.PricePoint, 0, len(series.Points))
	for _, pt := range series.Points {
		if pt.Date.Before(from) || pt.Date.After(to) {
			continue
		}
		points = append(points, pt)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s has no data in window", marketdata.ErrDataUnavailable, ticker)
	}
	return &domain.AssetSeries{Ticker: ticker, Points: points}, nil
}

// AddSeries adds a series to the stub store.
func (p *Provider) AddSeries(series *domain.AssetSeries) {
	p.Series[series.Ticker] = series
}

// AddSynthetic generates and stores n daily closes for ticker following
// a seeded geometric random walk. Weekends are skipped so dates look
// like real trading days.
func (p *Provider) AddSynthetic(ticker string, n int, start time.Time, startPrice, dailyDrift, dailyVol float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	points := make([]domain.PricePoint, 0, n)
	day := start
	price := startPrice
	for len(points) < n {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			points = append(points, domain.PricePoint{Date: day, Close: price})
			price *= math.Exp(dailyDrift + dailyVol*rng.NormFloat64())
		}
		day = day.AddDate(0, 0, 1)
	}
	p.Series[ticker] = &domain.AssetSeries{Ticker: ticker, Points: points}
}

var _ marketdata.PriceHistoryProvider = (*Provider)(nil)
