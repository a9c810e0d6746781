// Package guard enforces the single mutation path for trust: every computed
// delta passes through here, and only deltas within the fast-path bound
// commit immediately. Anything larger is held for human quorum revalidation.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trustplane/internal/trust/engine"
	"trustplane/internal/trust/metrics"
	"trustplane/internal/trust/models"
	"trustplane/internal/trust/policy"
	"trustplane/internal/trust/ports"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/audit"
	"trustplane/pkg/platform/sentinel"
)

// Type aliases for shared interfaces.
type (
	ActorStore     = ports.ActorStore
	DecisionStore  = ports.DecisionStore
	AuditPublisher = ports.AuditPublisher
)

// commitRetries bounds recomputation when concurrent events race on the
// same actor version.
const commitRetries = 3

type Service struct {
	actors         ActorStore
	decisions      DecisionStore
	engine         *engine.Engine
	rules          policy.Rules
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	clock          func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
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

func New(actors ActorStore, decisions DecisionStore, eng *engine.Engine, rules policy.Rules, opts ...Option) (*Service, error) {
	if actors == nil {
		return nil, fmt.Errorf("actor store is required")
	}
	if decisions == nil {
		return nil, fmt.Errorf("decision store is required")
	}
	if eng == nil {
		return nil, fmt.Errorf("trust engine is required")
	}

	svc := &Service{
		actors:    actors,
		decisions: decisions,
		engine:    eng,
		rules:     rules,
		clock:     func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Process evaluates a trust event and disposes of its delta. Deltas within
// the fast-path bound commit immediately under the optimistic version check;
// larger deltas are recorded as pending-quorum and left untouched until the
// revalidation quorum resolves them. Lost commits recompute against the new
// actor version, so a retried delta is always derived from current state.
func (s *Service) Process(ctx context.Context, event models.TrustEvent) (*models.DeltaGuardDecision, error) {
	start := s.clock()
	defer func() { s.metrics.ObserveApplyLatency(s.clock().Sub(start)) }()

	for attempt := 0; attempt < commitRetries; attempt++ {
		actor, err := s.actors.Get(ctx, event.ActorID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				s.metrics.IncRejected("not_found")
				return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "actor not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor")
		}

		stats, err := s.actors.HumanTrustStats(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive trust cap")
		}

		now := s.clock()
		decision, err := s.engine.Evaluate(ctx, actor, event, stats, now)
		if err != nil {
			s.metrics.IncRejected(string(dErrors.CodeOf(err)))
			return nil, err
		}

		if decision.Delta.Abs() > s.rules.DeltaFast() {
			decision.Verdict = models.VerdictPendingQuorum
			if err := s.decisions.Create(ctx, decision); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record pending decision")
			}
			s.metrics.IncVerdict(string(models.VerdictPendingQuorum))

			ev := audit.NewEvent(audit.EventQuorumOpened)
			ev.ActorID = actor.ID
			ev.DecisionID = decision.ID
			ev.Reason = "delta exceeds fast-path bound"
			ev.Detail = map[string]string{"delta": decision.Delta.String()}
			ports.LogAudit(ctx, s.logger, s.auditPublisher, ev)

			return decision, nil
		}

		if _, err := s.actors.CompareAndCommit(ctx, actor.ID, decision.BaseVersion, decision.NextTrust, now); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				s.metrics.IncCommitConflict()
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit trust value")
		}

		decision.Verdict = models.VerdictApply
		resolved := now
		decision.ResolvedAt = &resolved
		if err := s.decisions.Create(ctx, decision); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record applied decision")
		}
		s.metrics.IncVerdict(string(models.VerdictApply))

		ev := audit.NewEvent(audit.EventDeltaApplied)
		ev.ActorID = actor.ID
		ev.DecisionID = decision.ID
		ev.Detail = map[string]string{
			"prior": decision.PriorTrust.String(),
			"next":  decision.NextTrust.String(),
			"delta": decision.Delta.String(),
		}
		ports.LogAudit(ctx, s.logger, s.auditPublisher, ev)

		return decision, nil
	}

	return nil, dErrors.New(dErrors.CodeConflict, "trust commit kept losing to concurrent writers")
}

// CommitApproved applies a quorum-approved pending decision. The cap is
// re-derived against the current population and the stored next value
// re-clamped before the optimistic commit: a cap that tightened while the
// quorum gathered still binds. A version conflict means the actor moved
// since evaluation; the caller owns the terminal verdict in that case.
func (s *Service) CommitApproved(ctx context.Context, decision *models.DeltaGuardDecision) (id.TrustValue, error) {
	stats, err := s.actors.HumanTrustStats(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive trust cap")
	}

	next := decision.NextTrust.Clamp(s.rules.Floor(), s.rules.Cap(stats))
	if _, err := s.actors.CompareAndCommit(ctx, decision.ActorID, decision.BaseVersion, next, s.clock()); err != nil {
		if errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncCommitConflict()
			return 0, err
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit approved trust value")
	}
	return next, nil
}

// Decision retrieves a recorded decision.
func (s *Service) Decision(ctx context.Context, decisionID id.DecisionID) (*models.DeltaGuardDecision, error) {
	decision, err := s.decisions.Get(ctx, decisionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "decision not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load decision")
	}
	return decision, nil
}

// Resolved returns applied decisions in creation order, the input set for
// trust-delta root building.
func (s *Service) Resolved(ctx context.Context) ([]*models.DeltaGuardDecision, error) {
	applied, err := s.decisions.ListByVerdict(ctx, models.VerdictApply)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applied decisions")
	}
	return applied, nil
}
