package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rhoadesScholar/llm-experiments/pkg/experiment"
	"github.com/rhoadesScholar/llm-experiments/pkg/results"
)

// Store implements results.Store using in-memory maps. Used for tests and
// for runs where persistence is disabled.
type Store struct {
	// mu guards all three maps below
	mu sync.RWMutex

	runs      map[string]*results.Run
	records   map[string][]experiment.Record
	judgments map[string]map[experiment.Pair]experiment.Judgment
}

// NewStore creates a new in-memory results store.
func NewStore() *Store {
	return &Store{
		runs:      make(map[string]*results.Run),
		records:   make(map[string][]experiment.Record),
		judgments: make(map[string]map[experiment.Pair]experiment.Judgment),
	}
}

// SaveRun stores run metadata, overwriting any prior run with the same ID.
func (s *Store) SaveRun(_ context.Context, run *results.Run) error {
	if run == nil {
		return errors.New("cannot store nil run")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

// SaveRecords stores a run's records in slice order.
func (s *Store) SaveRecords(_ context.Context, runID string, records []experiment.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]experiment.Record, len(records))
	copy(copied, records)
	s.records[runID] = copied
	return nil
}

// SaveJudgments stores a run's pairwise judgment mapping.
func (s *Store) SaveJudgments(_ context.Context, runID string, judgments map[experiment.Pair]experiment.Judgment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[experiment.Pair]experiment.Judgment, len(judgments))
	for pair, judgment := range judgments {
		copied[pair] = judgment
	}
	s.judgments[runID] = copied
	return nil
}

// Run retrieves run metadata by ID.
func (s *Store) Run(_ context.Context, runID string) (*results.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, results.NotFoundError{RunID: runID}
	}

	copied := *run
	return &copied, nil
}

// ListRuns returns all runs, most recently started first.
func (s *Store) ListRuns(_ context.Context) ([]*results.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*results.Run, 0, len(s.runs))
	for _, run := range s.runs {
		copied := *run
		runs = append(runs, &copied)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

// Records returns a run's records in stored position order.
func (s *Store) Records(_ context.Context, runID string) ([]experiment.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.records[runID]
	if !ok {
		return nil, results.NotFoundError{RunID: runID}
	}

	copied := make([]experiment.Record, len(records))
	copy(copied, records)
	return copied, nil
}

// Judgments returns a run's pairwise judgment mapping.
func (s *Store) Judgments(_ context.Context, runID string) (map[experiment.Pair]experiment.Judgment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	judgments, ok := s.judgments[runID]
	if !ok {
		return nil, results.NotFoundError{RunID: runID}
	}

	copied := make(map[experiment.Pair]experiment.Judgment, len(judgments))
	for pair, judgment := range judgments {
		copied[pair] = judgment
	}
	return copied, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

var _ results.Store = (*Store)(nil)
