package pool

import (
	"context"
	"sync"

	"trustplane/internal/governance/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
)

// InMemoryStore holds pool snapshots for single-process deployments.
type InMemoryStore struct {
	mu     sync.RWMutex
	pools  map[id.PoolID]*models.EligibilityPool
	latest id.PoolID
}

func New() *InMemoryStore {
	return &InMemoryStore{pools: make(map[id.PoolID]*models.EligibilityPool)}
}

func (s *InMemoryStore) Save(_ context.Context, pool *models.EligibilityPool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pools[pool.ID]; exists {
		return sentinel.ErrConflict
	}
	s.pools[pool.ID] = clone(pool)
	s.latest = pool.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, poolID id.PoolID) (*models.EligibilityPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[poolID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemoryStore) Latest(_ context.Context) (*models.EligibilityPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest.IsNil() {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.pools[s.latest]), nil
}

func clone(p *models.EligibilityPool) *models.EligibilityPool {
	copied := *p
	copied.Candidates = append([]models.Candidate(nil), p.Candidates...)
	return &copied
}
