package memory

import (
	"context"
	"sort"
	"sync"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulationRun // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.SimulationRun),
	}
}

// Insert adds a completed run record. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, run *domain.SimulationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	runCopy := *run
	runCopy.Tickers = append([]string(nil), run.Tickers...)
	s.data[run.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *run
	runCopy.Tickers = append([]string(nil), run.Tickers...)
	return &runCopy, nil
}

// GetRecent retrieves the most recent runs, newest first, up to limit.
func (s *RunStore) GetRecent(_ context.Context, limit int) ([]*domain.SimulationRun, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SimulationRun, 0, len(s.data))
	for _, run := range s.data {
		runCopy := *run
		runCopy.Tickers = append([]string(nil), run.Tickers...)
		result = append(result, &runCopy)
	}

	// Sort by created_at DESC, run_id ASC for stable ordering
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountByTicker returns how many stored runs include ticker.
func (s *RunStore) CountByTicker(_ context.Context, ticker string) (int, error) {
	if ticker == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, run := range s.data {
		for _, t := range run.Tickers {
			if t == ticker {
				count++
				break
			}
		}
	}
	return count, nil
}

var _ storage.RunStore = (*RunStore)(nil)
