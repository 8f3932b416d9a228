package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
)

// InMemoryRunStore implements RunStore using an in-memory map
type InMemoryRunStore struct {
	runs map[string]*domain.RunRecord
	mu   sync.RWMutex
}

var _ ports.RunStore = (*InMemoryRunStore)(nil)

// NewInMemoryRunStore creates a new in-memory run store
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		runs: make(map[string]*domain.RunRecord),
	}
}

// SaveRun stores a copy of the run record
func (s *InMemoryRunStore) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run record requires an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = clone(run)
	return nil
}

// GetRun retrieves a copy of a run record
func (s *InMemoryRunStore) GetRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrRunNotFound, runID)
	}
	return clone(run), nil
}

// ListRuns returns every run, most recently submitted first
func (s *InMemoryRunStore) ListRuns(ctx context.Context) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	runs := make([]*domain.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, clone(run))
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].SubmittedAt.After(runs[j].SubmittedAt)
	})
	return runs, nil
}

// DeleteRun removes a run record
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, runID)
	return nil
}

// clone copies the record and its slices so callers cannot mutate stored state
func clone(run *domain.RunRecord) *domain.RunRecord {
	c := *run
	if run.Signals != nil {
		c.Signals = append([]domain.Signal(nil), run.Signals...)
	}
	if run.Config != nil {
		c.Config = make(map[string]domain.Value, len(run.Config))
		for k, v := range run.Config {
			c.Config[k] = v
		}
	}
	return &c
}
