package marketdata

import (
	"context"
	"errors"
	"time"

	"portfolio-risk-lab/internal/domain"
)

// Provider errors
var (
	// ErrDataUnavailable is returned when the upstream source cannot
	// supply a usable history for a ticker: unknown symbol, empty
	// response, or exhausted retries.
	ErrDataUnavailable = errors.New("price history unavailable")
)

// DefaultWindowStart is the beginning of the historical window fetched
// for estimation when the caller does not narrow it.
var DefaultWindowStart = time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)

// PriceHistoryProvider fetches daily closing-price history for tickers.
// Implementations must return series sorted by date ascending with
// strictly positive closes, or ErrDataUnavailable.
type PriceHistoryProvider interface {
	// GetDailyHistory retrieves daily closes for ticker within
	// [from, to], ordered by date ASC with no gaps filled in.
	GetDailyHistory(ctx context.Context, ticker string, from, to time.Time) (*domain.AssetSeries, error)
}
