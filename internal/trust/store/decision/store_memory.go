package decision

import (
	"context"
	"sort"
	"sync"
	"time"

	"trustplane/internal/trust/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
)

// InMemoryStore holds delta guard decisions and their quorum state.
type InMemoryStore struct {
	mu        sync.RWMutex
	decisions map[id.DecisionID]*models.DeltaGuardDecision
}

func New() *InMemoryStore {
	return &InMemoryStore{decisions: make(map[id.DecisionID]*models.DeltaGuardDecision)}
}

func (s *InMemoryStore) Create(_ context.Context, decision *models.DeltaGuardDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.decisions[decision.ID]; exists {
		return sentinel.ErrConflict
	}
	s.decisions[decision.ID] = clone(decision)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, decisionID id.DecisionID) (*models.DeltaGuardDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decisions[decisionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(d), nil
}

func (s *InMemoryStore) AppendSignature(_ context.Context, decisionID id.DecisionID, sig models.QuorumSignature) (*models.QuorumState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decisions[decisionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if d.Verdict != models.VerdictPendingQuorum {
		return nil, sentinel.ErrInvalidState
	}
	if d.Quorum.Has(sig.Signer) {
		return nil, sentinel.ErrAlreadyUsed
	}
	d.Quorum.Signatures = append(d.Quorum.Signatures, sig)
	state := clone(d).Quorum
	return &state, nil
}

func (s *InMemoryStore) Resolve(_ context.Context, decisionID id.DecisionID, verdict models.Verdict, resolvedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decisions[decisionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if d.Verdict.Terminal() {
		return sentinel.ErrInvalidState
	}
	d.Verdict = verdict
	t := resolvedAt
	d.ResolvedAt = &t
	return nil
}

func (s *InMemoryStore) ListByVerdict(_ context.Context, verdict models.Verdict) ([]*models.DeltaGuardDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DeltaGuardDecision
	for _, d := range s.decisions {
		if d.Verdict == verdict {
			out = append(out, clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func clone(d *models.DeltaGuardDecision) *models.DeltaGuardDecision {
	copied := *d
	copied.Quorum.Signatures = append([]models.QuorumSignature(nil), d.Quorum.Signatures...)
	if d.ResolvedAt != nil {
		t := *d.ResolvedAt
		copied.ResolvedAt = &t
	}
	return &copied
}
