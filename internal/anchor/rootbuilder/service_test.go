package rootbuilder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/canonical"
	"trustplane/pkg/platform/merkle"
)

// =============================================================================
// Root Builder Test Suite
// =============================================================================
// Covers canonicalization-before-hashing, cross-instance determinism, the
// no-empty-epoch rule, and proof serving from the retained build.

type RootBuilderSuite struct {
	suite.Suite
	records []any
	service *Service
	now     time.Time
}

func TestRootBuilderSuite(t *testing.T) {
	suite.Run(t, new(RootBuilderSuite))
}

func (s *RootBuilderSuite) SetupTest() {
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.records = []any{
		map[string]any{"actor_id": "a", "delta": "0.0100", "version": "2"},
		map[string]any{"actor_id": "b", "delta": "-0.0050", "version": "7"},
		map[string]any{"actor_id": "c", "delta": "0.0200", "version": "3"},
	}

	var err error
	s.service, err = New(map[id.DomainTag]RecordSource{
		id.DomainTrustDeltas: RecordSourceFunc(func(context.Context) ([]any, error) {
			return s.records, nil
		}),
	}, WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
}

func (s *RootBuilderSuite) TestBuild() {
	ctx := context.Background()

	s.Run("builds the canonical root", func() {
		record, err := s.service.Build(ctx, id.DomainTrustDeltas, 1)
		s.Require().NoError(err)

		s.Equal(id.DomainTrustDeltas, record.Domain)
		s.Equal(id.Epoch(1), record.Epoch)
		s.Equal(3, record.Leaves)
		s.Equal(s.now, record.BuiltAt)

		// An independent computation over the same records must agree.
		leaves := make([][]byte, len(s.records))
		for i, r := range s.records {
			leaf, err := canonical.Marshal(r)
			s.Require().NoError(err)
			leaves[i] = leaf
		}
		expected, err := merkle.Root(leaves)
		s.Require().NoError(err)
		s.Equal(expected, record.Root)
	})

	s.Run("rebuild over unchanged records reproduces the root", func() {
		first, err := s.service.Build(ctx, id.DomainTrustDeltas, 1)
		s.Require().NoError(err)
		second, err := s.service.Build(ctx, id.DomainTrustDeltas, 2)
		s.Require().NoError(err)
		s.Equal(first.Root, second.Root)
	})

	s.Run("unknown domain", func() {
		_, err := s.service.Build(ctx, id.DomainAmendments, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("epoch zero", func() {
		_, err := s.service.Build(ctx, id.DomainTrustDeltas, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("an epoch with no records has no root", func() {
		s.records = nil
		_, err := s.service.Build(ctx, id.DomainTrustDeltas, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("source failure", func() {
		svc, err := New(map[id.DomainTag]RecordSource{
			id.DomainTrustDeltas: RecordSourceFunc(func(context.Context) ([]any, error) {
				return nil, errors.New("backend down")
			}),
		})
		s.Require().NoError(err)
		_, err = svc.Build(ctx, id.DomainTrustDeltas, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *RootBuilderSuite) TestLatest() {
	ctx := context.Background()

	_, ok := s.service.Latest(id.DomainTrustDeltas)
	s.False(ok)

	record, err := s.service.Build(ctx, id.DomainTrustDeltas, 1)
	s.Require().NoError(err)

	latest, ok := s.service.Latest(id.DomainTrustDeltas)
	s.Require().True(ok)
	s.Equal(record.Root, latest.Root)
}

func (s *RootBuilderSuite) TestProve() {
	ctx := context.Background()

	s.Run("no build yet", func() {
		_, _, err := s.service.Prove(id.DomainTrustDeltas, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("proofs verify against the built root", func() {
		record, err := s.service.Build(ctx, id.DomainTrustDeltas, 1)
		s.Require().NoError(err)

		for i := 0; i < record.Leaves; i++ {
			proof, leaf, err := s.service.Prove(id.DomainTrustDeltas, i)
			s.Require().NoError(err)
			s.True(proof.Verify(record.Root, leaf), "index %d", i)
		}
	})

	s.Run("out-of-range index", func() {
		_, err := s.service.Build(ctx, id.DomainTrustDeltas, 2)
		s.Require().NoError(err)
		_, _, err = s.service.Prove(id.DomainTrustDeltas, 99)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
