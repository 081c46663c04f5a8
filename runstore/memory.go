package runstore

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/agentrun/agent"
)

// MemoryStore keeps snapshots in process memory. Snapshots are deep-copied on
// both save and load so callers cannot mutate stored state.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*agent.PausedAgentRun
}

// NewMemoryStore 创建内存快照存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*agent.PausedAgentRun)}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, paused *agent.PausedAgentRun) error {
	if paused == nil || paused.RunID == "" {
		return errors.New("runstore: snapshot missing run_id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[paused.RunID] = paused.Clone()
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, runID string) (*agent.PausedAgentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paused, ok := s.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return paused.Clone(), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	return ids, nil
}
