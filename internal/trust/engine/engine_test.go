package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustplane/internal/platform/config"
	"trustplane/internal/trust/models"
	"trustplane/internal/trust/policy"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
)

// =============================================================================
// Trust Engine Test Suite
// =============================================================================
// The engine is the pure core of trust arithmetic: evidence validation, gain
// attribution, and clamping. Every rule is exercised here without storage.

type EngineSuite struct {
	suite.Suite
	rules  policy.Rules
	engine *Engine
	now    time.Time
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.rules = policy.NewRules(config.TrustPolicy{
		Floor:     0,
		AbsMax:    10000, // 1.0000
		CapStddev: 2.0,
		Alpha:     0.05,
		GainMax:   500, // 0.0500
		DeltaFast: 200, // 0.0200
	})
	s.engine = New(s.rules)
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func (s *EngineSuite) actor() *models.Actor {
	return &models.Actor{
		ID:           id.NewActorID(),
		Region:       "eu-west",
		Org:          "acme",
		Kind:         models.ActorAgent,
		MachineTrust: 5000, // 0.5000
		Version:      3,
	}
}

func (s *EngineSuite) event(actor *models.Actor, review *models.ProofOfTrust) models.TrustEvent {
	return models.TrustEvent{
		ID:      id.NewEventID(),
		ActorID: actor.ID,
		Work: models.ProofOfWork{
			Ref:         "job/42",
			ArtifactSHA: strings.Repeat("a", 64),
			CompletedAt: s.now.Add(-time.Hour),
		},
		Review:     review,
		OccurredAt: s.now,
	}
}

func approvedReview(quality float64) *models.ProofOfTrust {
	return &models.ProofOfTrust{
		ReviewRef: "review/7",
		Reviewer:  id.NewActorID(),
		Approved:  true,
		Quality:   quality,
	}
}

// =============================================================================
// Evidence Validation
// =============================================================================

func (s *EngineSuite) TestEvaluate_RejectsInvalidEvidence() {
	ctx := context.Background()
	actor := s.actor()

	s.Run("missing event id", func() {
		event := s.event(actor, nil)
		event.ID = id.EventID{}
		_, err := s.engine.Evaluate(ctx, actor, event, models.PopulationStats{}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeEvidenceInvalid))
	})

	s.Run("actor mismatch", func() {
		event := s.event(actor, nil)
		event.ActorID = id.NewActorID()
		_, err := s.engine.Evaluate(ctx, actor, event, models.PopulationStats{}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeEvidenceInvalid))
	})

	s.Run("missing occurrence time", func() {
		event := s.event(actor, nil)
		event.OccurredAt = time.Time{}
		_, err := s.engine.Evaluate(ctx, actor, event, models.PopulationStats{}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeEvidenceInvalid))
	})

	s.Run("malformed work artifact digest", func() {
		event := s.event(actor, nil)
		event.Work.ArtifactSHA = "short"
		_, err := s.engine.Evaluate(ctx, actor, event, models.PopulationStats{}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeEvidenceInvalid))
	})

	s.Run("review quality out of range", func() {
		review := approvedReview(1.5)
		event := s.event(actor, review)
		_, err := s.engine.Evaluate(ctx, actor, event, models.PopulationStats{}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeEvidenceInvalid))
	})

	s.Run("self-review", func() {
		review := approvedReview(0.9)
		review.Reviewer = actor.ID
		event := s.event(actor, review)
		_, err := s.engine.Evaluate(ctx, actor, event, models.PopulationStats{}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeEvidenceInvalid))
	})
}

// =============================================================================
// Gain Attribution
// =============================================================================

func (s *EngineSuite) TestEvaluate_GainRequiresApprovedReview() {
	ctx := context.Background()

	s.Run("work alone never raises trust", func() {
		actor := s.actor()
		decision, err := s.engine.Evaluate(ctx, actor, s.event(actor, nil), models.PopulationStats{}, s.now)
		s.Require().NoError(err)
		s.Equal(id.TrustValue(0), decision.Gain)
		s.Equal(id.TrustValue(0), decision.Delta)
		s.Equal(actor.MachineTrust, decision.NextTrust)
	})

	s.Run("unapproved review yields zero gain", func() {
		actor := s.actor()
		review := approvedReview(1.0)
		review.Approved = false
		decision, err := s.engine.Evaluate(ctx, actor, s.event(actor, review), models.PopulationStats{}, s.now)
		s.Require().NoError(err)
		s.Equal(id.TrustValue(0), decision.Gain)
	})

	s.Run("approved review gains proportionally to quality", func() {
		actor := s.actor()
		decision, err := s.engine.Evaluate(ctx, actor, s.event(actor, approvedReview(0.5)), models.PopulationStats{}, s.now)
		s.Require().NoError(err)
		s.Equal(id.TrustValue(250), decision.Gain) // 0.05 * 0.5
		s.Equal(id.TrustValue(5250), decision.NextTrust)
		s.Equal(id.TrustValue(250), decision.Delta)
	})
}

// =============================================================================
// Clamping
// =============================================================================

func (s *EngineSuite) TestEvaluate_Clamping() {
	ctx := context.Background()

	s.Run("next trust clamps at the population cap", func() {
		actor := s.actor()
		actor.MachineTrust = 6900 // 0.6900
		stats := models.PopulationStats{Count: 10, Mean: 0.5, Std: 0.1}

		decision, err := s.engine.Evaluate(ctx, actor, s.event(actor, approvedReview(1.0)), stats, s.now)
		s.Require().NoError(err)
		s.Equal(id.TrustValue(7000), decision.NextTrust) // cap = 0.5 + 2*0.1
		s.Equal(id.TrustValue(100), decision.Delta)
	})

	s.Run("next trust clamps at the floor", func() {
		actor := s.actor()
		actor.MachineTrust = 100
		eng := New(s.rules, WithPenalty(func(*models.Actor, models.TrustEvent) id.TrustValue {
			return 300
		}))

		decision, err := eng.Evaluate(ctx, actor, s.event(actor, nil), models.PopulationStats{}, s.now)
		s.Require().NoError(err)
		s.Equal(id.TrustValue(0), decision.NextTrust)
		s.Equal(id.TrustValue(-100), decision.Delta)
	})

	s.Run("negative penalty is an invariant violation", func() {
		actor := s.actor()
		eng := New(s.rules, WithPenalty(func(*models.Actor, models.TrustEvent) id.TrustValue {
			return -100
		}))
		_, err := eng.Evaluate(ctx, actor, s.event(actor, nil), models.PopulationStats{}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

// =============================================================================
// Decay
// =============================================================================

func (s *EngineSuite) TestEvaluate_Decay() {
	ctx := context.Background()
	actor := s.actor()
	actor.LastActiveAt = s.now.Add(-40 * 24 * time.Hour)

	eng := New(s.rules, WithDecay(policy.LinearDormancyDecay(10, 720*time.Hour)))
	decision, err := eng.Evaluate(ctx, actor, s.event(actor, nil), models.PopulationStats{}, s.now)
	s.Require().NoError(err)
	s.Equal(id.TrustValue(100), decision.Decay) // 10 days past grace
	s.Equal(id.TrustValue(-100), decision.Delta)
}

// =============================================================================
// Decision Shape
// =============================================================================

func (s *EngineSuite) TestEvaluate_DecisionCarriesBase() {
	actor := s.actor()
	event := s.event(actor, approvedReview(0.3))

	decision, err := s.engine.Evaluate(context.Background(), actor, event, models.PopulationStats{}, s.now)
	s.Require().NoError(err)

	s.False(decision.ID.IsNil())
	s.Equal(event.ID, decision.EventID)
	s.Equal(actor.ID, decision.ActorID)
	s.Equal(actor.Version, decision.BaseVersion)
	s.Equal(actor.MachineTrust, decision.PriorTrust)
	s.Empty(decision.Verdict, "disposition belongs to the delta guard")
	s.Equal(s.now, decision.CreatedAt)
	s.Nil(decision.ResolvedAt)
}
