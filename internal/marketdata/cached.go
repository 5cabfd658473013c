package marketdata

import (
	"context"
	"errors"
	"time"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// CachedProvider reads history from a bar store and falls through to
// the upstream provider on a miss, writing fetched bars back. A cache
// hit requires the store to cover the window end; stale caches are
// refreshed wholesale rather than patched.
type CachedProvider struct {
	upstream PriceHistoryProvider
	bars     storage.BarStore

	// MaxStaleness is how far the latest cached bar may lag the window
	// end before the cache is considered stale. Trading gaps make a few
	// days of lag normal.
	MaxStaleness time.Duration
}

// NewCachedProvider wraps upstream with a bar-store cache.
func NewCachedProvider(upstream PriceHistoryProvider, bars storage.BarStore) *CachedProvider {
	return &CachedProvider{
		upstream:     upstream,
		bars:         bars,
		MaxStaleness: 5 * 24 * time.Hour,
	}
}

// GetDailyHistory serves from the cache when fresh enough, otherwise
// fetches upstream and stores the result. A write-back failure does not
// fail the fetch.
func (p *CachedProvider) GetDailyHistory(ctx context.Context, ticker string, from, to time.Time) (*domain.AssetSeries, error) {
	latest, err := p.bars.LatestDate(ctx, ticker)
	cacheExists := err == nil
	if cacheExists && to.Sub(latest) <= p.MaxStaleness {
		bars, err := p.bars.GetByTicker(ctx, ticker, from)
		if err != nil {
			return nil, err
		}
		if len(bars) > 0 {
			return seriesFromBars(ticker, bars, to), nil
		}
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	series, err := p.upstream.GetDailyHistory(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}

	// Write back only what the cache does not hold yet, so a stale
	// refresh never collides with existing (ticker, date) keys.
	bars := make([]*domain.DailyBar, 0, len(series.Points))
	for _, pt := range series.Points {
		if cacheExists && !pt.Date.After(latest) {
			continue
		}
		bars = append(bars, &domain.DailyBar{Ticker: ticker, Date: pt.Date, Close: pt.Close})
	}
	if len(bars) > 0 {
		if err := p.bars.InsertBulk(ctx, bars); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, err
		}
	}
	return series, nil
}

func seriesFromBars(ticker string, bars []*domain.DailyBar, to time.Time) *domain.AssetSeries {
	points := make([]domain.PricePoint, 0, len(bars))
	for _, b := range bars {
		if b.Date.After(to) {
			continue
		}
		points = append(points, domain.PricePoint{Date: b.Date, Close: b.Close})
	}
	return &domain.AssetSeries{Ticker: ticker, Points: points}
}

var _ PriceHistoryProvider = (*CachedProvider)(nil)
