// Package rootbuilder turns each domain's canonical records into epoch
// Merkle roots. Records are canonicalized before hashing, so every party
// holding the same records derives the same root.
package rootbuilder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trustplane/internal/anchor/metrics"
	"trustplane/internal/anchor/models"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/canonical"
	"trustplane/pkg/platform/merkle"
)

// RecordSource supplies a domain's canonical records for the next epoch, in
// their fixed domain order.
type RecordSource interface {
	Records(ctx context.Context) ([]any, error)
}

// RecordSourceFunc adapts a function to a RecordSource.
type RecordSourceFunc func(ctx context.Context) ([]any, error)

func (f RecordSourceFunc) Records(ctx context.Context) ([]any, error) { return f(ctx) }

// built retains one build's leaves so inclusion proofs can be served until
// the next build of that domain.
type built struct {
	record models.RootRecord
	leaves [][]byte
}

type Service struct {
	sources map[id.DomainTag]RecordSource
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time

	mu    sync.RWMutex
	roots map[id.DomainTag]*built
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides time acquisition, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(sources map[id.DomainTag]RecordSource, opts ...Option) (*Service, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one record source is required")
	}

	svc := &Service{
		sources: sources,
		clock:   func() time.Time { return time.Now().UTC() },
		roots:   make(map[id.DomainTag]*built),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Build computes the epoch root for a domain from its current records.
// An epoch with no records has no root; callers skip the epoch instead of
// anchoring emptiness.
func (s *Service) Build(ctx context.Context, domain id.DomainTag, epoch id.Epoch) (*models.RootRecord, error) {
	source, ok := s.sources[domain]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "no record source for domain %s", domain)
	}
	if epoch == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "epochs start at 1")
	}

	records, err := source.Records(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to gather records")
	}
	if len(records) == 0 {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "no records to anchor for domain %s", domain)
	}

	leaves := make([][]byte, len(records))
	for i, r := range records {
		leaf, err := canonical.Marshal(r)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to canonicalize record")
		}
		leaves[i] = leaf
	}

	root, err := merkle.Root(leaves)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build merkle root")
	}

	record := models.RootRecord{
		Domain:  domain,
		Epoch:   epoch,
		Root:    root,
		Leaves:  len(leaves),
		BuiltAt: s.clock(),
	}

	s.mu.Lock()
	s.roots[domain] = &built{record: record, leaves: leaves}
	s.mu.Unlock()

	s.metrics.IncRootBuilt(domain.String())
	if s.logger != nil {
		s.logger.InfoContext(ctx, "epoch root built",
			"domain", domain,
			"epoch", epoch,
			"leaves", len(leaves),
		)
	}
	return &record, nil
}

// Latest returns the most recently built root for a domain.
func (s *Service) Latest(domain id.DomainTag) (*models.RootRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.roots[domain]
	if !ok {
		return nil, false
	}
	record := b.record
	return &record, true
}

// Prove returns the inclusion proof for leaf index in the most recent build
// of a domain.
func (s *Service) Prove(domain id.DomainTag, index int) (*merkle.Proof, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.roots[domain]
	if !ok {
		return nil, nil, dErrors.Newf(dErrors.CodeNotFound, "no root built for domain %s", domain)
	}
	proof, err := merkle.Prove(b.leaves, index)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid leaf index")
	}
	return proof, b.leaves[index], nil
}
