package clickhouse

import (
	"context"
	"fmt"
	"time"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds daily bars. Duplicate (ticker, date) pairs fail the
// entire batch. MergeTree does not enforce uniqueness at insert time,
// so existing keys are checked explicitly per ticker first.
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.DailyBar) error {
	if len(bars) == 0 {
		return storage.ErrInvalidInput
	}

	type key struct {
		ticker string
		date   time.Time
	}
	seen := make(map[key]struct{}, len(bars))
	perTicker := make(map[string][]time.Time)
	for _, b := range bars {
		if b == nil || b.Ticker == "" {
			return storage.ErrInvalidInput
		}
		day := b.Date.Truncate(24 * time.Hour)
		k := key{b.Ticker, day}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		perTicker[b.Ticker] = append(perTicker[b.Ticker], day)
	}

	for ticker, dates := range perTicker {
		existing, err := s.existingDates(ctx, ticker, dates)
		if err != nil {
			return fmt.Errorf("check existing bars: %w", err)
		}
		if existing > 0 {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO daily_bars (ticker, date, close)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, b := range bars {
		if err := batch.Append(b.Ticker, b.Date, b.Close); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// existingDates counts stored bars for ticker among the given dates.
func (s *BarStore) existingDates(ctx context.Context, ticker string, dates []time.Time) (uint64, error) {
	query := `
		SELECT count()
		FROM daily_bars
		WHERE ticker = ? AND date IN (?)
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, ticker, dates).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetByTicker retrieves all bars for ticker from start onward, ordered
// by date ASC.
func (s *BarStore) GetByTicker(ctx context.Context, ticker string, start time.Time) ([]*domain.DailyBar, error) {
	if ticker == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ticker, date, close
		FROM daily_bars FINAL
		WHERE ticker = ? AND date >= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker, start)
	if err != nil {
		return nil, fmt.Errorf("get bars by ticker: %w", err)
	}
	defer rows.Close()

	bars := make([]*domain.DailyBar, 0)
	for rows.Next() {
		var b domain.DailyBar
		if err := rows.Scan(&b.Ticker, &b.Date, &b.Close); err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		bars = append(bars, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}
	return bars, nil
}

// LatestDate returns the most recent bar date stored for ticker.
func (s *BarStore) LatestDate(ctx context.Context, ticker string) (time.Time, error) {
	if ticker == "" {
		return time.Time{}, storage.ErrInvalidInput
	}

	query := `
		SELECT max(date), count()
		FROM daily_bars
		WHERE ticker = ?
	`

	var latest time.Time
	var count uint64
	if err := s.conn.QueryRow(ctx, query, ticker).Scan(&latest, &count); err != nil {
		return time.Time{}, fmt.Errorf("latest bar date: %w", err)
	}
	if count == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}
