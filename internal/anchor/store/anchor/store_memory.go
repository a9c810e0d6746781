package anchor

import (
	"context"
	"sync"

	"trustplane/internal/anchor/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
)

type key struct {
	domain id.DomainTag
	epoch  id.Epoch
}

// InMemoryStore holds certificates and anchor commitments.
type InMemoryStore struct {
	mu           sync.RWMutex
	certificates map[key]*models.Certificate
	commitments  map[key]*models.AnchorCommitment
	latest       map[id.DomainTag]id.Epoch
}

func New() *InMemoryStore {
	return &InMemoryStore{
		certificates: make(map[key]*models.Certificate),
		commitments:  make(map[key]*models.AnchorCommitment),
		latest:       make(map[id.DomainTag]id.Epoch),
	}
}

func (s *InMemoryStore) SaveCertificate(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{cert.Domain, cert.Epoch}
	if _, exists := s.certificates[k]; exists {
		return sentinel.ErrConflict
	}
	copied := *cert
	copied.Signatures = append([]models.CertificateSignature(nil), cert.Signatures...)
	s.certificates[k] = &copied
	return nil
}

func (s *InMemoryStore) Certificate(_ context.Context, domain id.DomainTag, epoch id.Epoch) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.certificates[key{domain, epoch}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *cert
	copied.Signatures = append([]models.CertificateSignature(nil), cert.Signatures...)
	return &copied, nil
}

func (s *InMemoryStore) SaveCommitment(_ context.Context, commitment *models.AnchorCommitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if commitment.Epoch != s.latest[commitment.Domain]+1 {
		return sentinel.ErrOutOfOrder
	}
	copied := *commitment
	s.commitments[key{commitment.Domain, commitment.Epoch}] = &copied
	s.latest[commitment.Domain] = commitment.Epoch
	return nil
}

func (s *InMemoryStore) Commitment(_ context.Context, domain id.DomainTag, epoch id.Epoch) (*models.AnchorCommitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commitments[key{domain, epoch}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *InMemoryStore) LatestEpoch(_ context.Context, domain id.DomainTag) (id.Epoch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest[domain], nil
}
