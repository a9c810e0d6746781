package actor

import (
	"context"
	"math"
	"sync"
	"time"

	"trustplane/internal/trust/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
)

// InMemoryStore is the development/test implementation of the versioned
// trust store.
type InMemoryStore struct {
	mu     sync.RWMutex
	actors map[id.ActorID]*models.Actor
}

func New() *InMemoryStore {
	return &InMemoryStore{actors: make(map[id.ActorID]*models.Actor)}
}

func (s *InMemoryStore) Get(_ context.Context, actorID id.ActorID) (*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actor, ok := s.actors[actorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *actor
	return &copied, nil
}

func (s *InMemoryStore) Put(_ context.Context, actor *models.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *actor
	s.actors[actor.ID] = &copied
	return nil
}

func (s *InMemoryStore) CompareAndCommit(_ context.Context, actorID id.ActorID, expectedVersion uint64, next id.TrustValue, now time.Time) (*models.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, ok := s.actors[actorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if actor.Version != expectedVersion {
		return nil, sentinel.ErrConflict
	}
	actor.MachineTrust = next
	actor.Version++
	actor.LastActiveAt = now
	copied := *actor
	return &copied, nil
}

func (s *InMemoryStore) HumanTrustStats(_ context.Context) (models.PopulationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum float64
	var n int
	for _, a := range s.actors {
		if a.Kind == models.ActorHuman {
			sum += a.HumanTrust.Float()
			n++
		}
	}
	if n == 0 {
		return models.PopulationStats{}, nil
	}
	mean := sum / float64(n)

	var sq float64
	for _, a := range s.actors {
		if a.Kind == models.ActorHuman {
			d := a.HumanTrust.Float() - mean
			sq += d * d
		}
	}
	return models.PopulationStats{
		Count: n,
		Mean:  mean,
		Std:   math.Sqrt(sq / float64(n)),
	}, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Actor, 0, len(s.actors))
	for _, a := range s.actors {
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}
