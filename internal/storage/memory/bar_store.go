package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// barKey identifies one daily bar; dates are normalized to UTC midnight.
type barKey struct {
	ticker string
	date   time.Time
}

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[barKey]*domain.DailyBar
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[barKey]*domain.DailyBar),
	}
}

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InsertBulk adds daily bars. Duplicate (ticker, date) pairs fail the
// entire batch before any bar is stored.
func (s *BarStore) InsertBulk(_ context.Context, bars []*domain.DailyBar) error {
	if len(bars) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]barKey, len(bars))
	for i, b := range bars {
		if b == nil || b.Ticker == "" {
			return storage.ErrInvalidInput
		}
		keys[i] = barKey{ticker: b.Ticker, date: normalizeDate(b.Date)}
		if _, exists := s.data[keys[i]]; exists {
			return storage.ErrDuplicateKey
		}
	}
	// Also reject duplicates within the batch itself.
	seen := make(map[barKey]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for i, b := range bars {
		barCopy := *b
		barCopy.Date = keys[i].date
		s.data[keys[i]] = &barCopy
	}
	return nil
}

// GetByTicker retrieves all bars for ticker from start onward, ordered
// by date ASC.
func (s *BarStore) GetByTicker(_ context.Context, ticker string, start time.Time) ([]*domain.DailyBar, error) {
	if ticker == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	from := normalizeDate(start)
	result := make([]*domain.DailyBar, 0)
	for k, b := range s.data {
		if k.ticker != ticker || k.date.Before(from) {
			continue
		}
		barCopy := *b
		result = append(result, &barCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// LatestDate returns the most recent bar date stored for ticker.
func (s *BarStore) LatestDate(_ context.Context, ticker string) (time.Time, error) {
	if ticker == "" {
		return time.Time{}, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for k := range s.data {
		if k.ticker != ticker {
			continue
		}
		if !found || k.date.After(latest) {
			latest = k.date
			found = true
		}
	}
	if !found {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

var _ storage.BarStore = (*BarStore)(nil)
