// Package engine computes trust deltas from evidence. The engine is pure:
// it reads the actor snapshot and population statistics it is handed and
// never touches storage, so every rule is testable in isolation.
package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"trustplane/internal/trust/models"
	"trustplane/internal/trust/policy"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
)

var tracer = otel.Tracer("trustplane/internal/trust/engine")

type Engine struct {
	rules   policy.Rules
	penalty policy.PenaltyFunc
	decay   policy.DecayFunc
}

type Option func(*Engine)

// WithPenalty overrides the penalty function.
func WithPenalty(fn policy.PenaltyFunc) Option {
	return func(e *Engine) {
		e.penalty = fn
	}
}

// WithDecay overrides the dormancy decay function.
func WithDecay(fn policy.DecayFunc) Option {
	return func(e *Engine) {
		e.decay = fn
	}
}

func New(rules policy.Rules, opts ...Option) *Engine {
	e := &Engine{
		rules:   rules,
		penalty: policy.NoPenalty,
		decay:   func(*models.Actor, time.Time) id.TrustValue { return 0 },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate validates the event's evidence and computes the bounded trust
// delta for the actor. Gain comes exclusively from approved proof-of-trust;
// proof-of-work alone never raises trust. The result carries no verdict:
// disposition belongs to the delta guard.
func (e *Engine) Evaluate(ctx context.Context, actor *models.Actor, event models.TrustEvent, stats models.PopulationStats, now time.Time) (*models.DeltaGuardDecision, error) {
	_, span := tracer.Start(ctx, "engine.Evaluate")
	defer span.End()

	if err := validate(actor, event); err != nil {
		return nil, err
	}

	gain := e.rules.Gain(event.Review)
	penalty := e.penalty(actor, event)
	decay := e.decay(actor, now)
	if penalty < 0 || decay < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "penalty and decay must be non-negative")
	}

	prior := actor.MachineTrust
	next := (prior + gain - penalty - decay).Clamp(e.rules.Floor(), e.rules.Cap(stats))
	delta := next - prior

	span.SetAttributes(
		attribute.String("actor_id", actor.ID.String()),
		attribute.String("delta", delta.String()),
	)

	return &models.DeltaGuardDecision{
		ID:          id.NewDecisionID(),
		EventID:     event.ID,
		ActorID:     actor.ID,
		BaseVersion: actor.Version,
		PriorTrust:  prior,
		NextTrust:   next,
		Delta:       delta,
		Gain:        gain,
		Penalty:     penalty,
		Decay:       decay,
		CreatedAt:   now,
	}, nil
}

func validate(actor *models.Actor, event models.TrustEvent) error {
	if event.ID.IsNil() {
		return dErrors.New(dErrors.CodeEvidenceInvalid, "event id is required")
	}
	if event.ActorID != actor.ID {
		return dErrors.New(dErrors.CodeEvidenceInvalid, "event actor does not match the evaluated actor")
	}
	if event.OccurredAt.IsZero() {
		return dErrors.New(dErrors.CodeEvidenceInvalid, "event occurrence time is required")
	}
	if err := event.Work.Validate(); err != nil {
		return err
	}
	if event.Review != nil {
		if err := event.Review.Validate(); err != nil {
			return err
		}
		if event.Review.Reviewer == actor.ID {
			return dErrors.New(dErrors.CodeEvidenceInvalid, "proof-of-trust review must be independent of the actor")
		}
	}
	return nil
}
