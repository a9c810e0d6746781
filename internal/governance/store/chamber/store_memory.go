package chamber

import (
	"context"
	"sync"

	"trustplane/internal/governance/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
)

// InMemoryStore holds selected chambers.
type InMemoryStore struct {
	mu       sync.RWMutex
	chambers map[id.ChamberID]*models.Chamber
	latest   id.ChamberID
}

func New() *InMemoryStore {
	return &InMemoryStore{chambers: make(map[id.ChamberID]*models.Chamber)}
}

func (s *InMemoryStore) Save(_ context.Context, c *models.Chamber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chambers[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.chambers[c.ID] = clone(c)
	s.latest = c.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, chamberID id.ChamberID) (*models.Chamber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chambers[chamberID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

func (s *InMemoryStore) Latest(_ context.Context) (*models.Chamber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest.IsNil() {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.chambers[s.latest]), nil
}

func clone(c *models.Chamber) *models.Chamber {
	copied := *c
	copied.Seed = append([]byte(nil), c.Seed...)
	copied.Members = append([]models.Candidate(nil), c.Members...)
	return &copied
}
