// Package quorum collects human revalidation signatures for out-of-bound
// trust deltas and resolves the pending decisions they guard. All three
// diversity thresholds (signers, regions, organizations) must hold at the
// same moment; meeting them sequentially is not enough.
package quorum

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"trustplane/internal/platform/config"
	"trustplane/internal/trust/guard"
	"trustplane/internal/trust/metrics"
	"trustplane/internal/trust/models"
	"trustplane/internal/trust/ports"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/audit"
	"trustplane/pkg/platform/canonical"
	"trustplane/pkg/platform/sentinel"
)

// Type aliases for shared interfaces.
type (
	ActorStore     = ports.ActorStore
	DecisionStore  = ports.DecisionStore
	KeyDirectory   = ports.KeyDirectory
	AuditPublisher = ports.AuditPublisher
)

var tracer = otel.Tracer("trustplane/internal/trust/quorum")

type Service struct {
	actors         ActorStore
	decisions      DecisionStore
	keys           KeyDirectory
	guard          *guard.Service
	policy         config.QuorumPolicy
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

func New(actors ActorStore, decisions DecisionStore, keys KeyDirectory, g *guard.Service, policy config.QuorumPolicy, opts ...Option) (*Service, error) {
	if actors == nil {
		return nil, fmt.Errorf("actor store is required")
	}
	if decisions == nil {
		return nil, fmt.Errorf("decision store is required")
	}
	if keys == nil {
		return nil, fmt.Errorf("key directory is required")
	}
	if g == nil {
		return nil, fmt.Errorf("delta guard is required")
	}
	if policy.MinSigners < 1 || policy.MinRegions < 1 || policy.MinOrgs < 1 {
		return nil, fmt.Errorf("quorum thresholds must be at least 1")
	}

	svc := &Service{
		actors:    actors,
		decisions: decisions,
		keys:      keys,
		guard:     g,
		policy:    policy,
		clock:     func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// SigningBytes returns the canonical byte content a revalidator signs for a
// pending decision. Stable across processes: any party holding the decision
// can reproduce it.
func SigningBytes(d *models.DeltaGuardDecision) ([]byte, error) {
	return canonical.Marshal(struct {
		DecisionID  string        `json:"decision_id"`
		EventID     string        `json:"event_id"`
		ActorID     string        `json:"actor_id"`
		Prior       id.TrustValue `json:"prior"`
		Next        id.TrustValue `json:"next"`
		Delta       id.TrustValue `json:"delta"`
		BaseVersion uint64        `json:"base_version"`
	}{
		DecisionID:  d.ID.String(),
		EventID:     d.EventID.String(),
		ActorID:     d.ActorID.String(),
		Prior:       d.PriorTrust,
		Next:        d.NextTrust,
		Delta:       d.Delta,
		BaseVersion: d.BaseVersion,
	})
}

// SubmitSignature verifies and records one human revalidation signature.
// When the submission makes all thresholds hold simultaneously, the decision
// finalizes in the same call and the returned decision carries its terminal
// verdict.
func (s *Service) SubmitSignature(ctx context.Context, decisionID id.DecisionID, signer id.ActorID, signature []byte) (*models.DeltaGuardDecision, error) {
	decision, err := s.decisions.Get(ctx, decisionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "decision not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load decision")
	}
	if decision.Verdict != models.VerdictPendingQuorum {
		if decision.Verdict == models.VerdictSuspended {
			return nil, dErrors.New(dErrors.CodeQuorumFailed, "the quorum for this decision closed without approval")
		}
		return nil, dErrors.New(dErrors.CodeConflict, "decision is already resolved")
	}

	actor, err := s.actors.Get(ctx, signer)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "signer not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load signer")
	}
	if actor.Kind != models.ActorHuman {
		return nil, dErrors.New(dErrors.CodeValidation, "revalidation signatures must come from human actors")
	}
	if actor.Recused || !actor.Eligible {
		return nil, dErrors.New(dErrors.CodeValidation, "signer is not eligible to revalidate")
	}
	if actor.ID == decision.ActorID {
		return nil, dErrors.New(dErrors.CodeValidation, "the subject of a decision cannot revalidate it")
	}

	key, err := s.keys.PublicKey(ctx, signer)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "signer has no published key")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve signer key")
	}
	payload, err := SigningBytes(decision)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build signing payload")
	}
	if !ed25519.Verify(key, payload, signature) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signature does not verify against the signer's key")
	}

	state, err := s.decisions.AppendSignature(ctx, decisionID, models.QuorumSignature{
		Signer:    signer,
		Region:    actor.Region,
		Org:       actor.Org,
		Signature: signature,
		SignedAt:  s.clock(),
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "signer already contributed to this decision")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "decision is already resolved")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "decision not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record signature")
		}
	}
	s.metrics.IncQuorumSignature()

	if !s.met(*state) {
		decision.Quorum = *state
		return decision, nil
	}
	return s.finalize(ctx, decisionID)
}

// met reports whether all three thresholds hold over the current signature
// set at once.
func (s *Service) met(state models.QuorumState) bool {
	return state.SignerCount() >= s.policy.MinSigners &&
		state.RegionCount() >= s.policy.MinRegions &&
		state.OrgCount() >= s.policy.MinOrgs
}

// finalize commits an approved decision. The guard re-derives the cap at
// commit time; if the actor's version moved while signatures gathered, the
// stale delta is suspended rather than force-applied.
func (s *Service) finalize(ctx context.Context, decisionID id.DecisionID) (*models.DeltaGuardDecision, error) {
	ctx, span := tracer.Start(ctx, "quorum.Finalize")
	defer span.End()

	decision, err := s.decisions.Get(ctx, decisionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload decision")
	}

	next, err := s.guard.CommitApproved(ctx, decision)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrNotFound) {
			return s.suspend(ctx, decision, "actor state moved while the quorum gathered")
		}
		return nil, err
	}

	now := s.clock()
	if err := s.decisions.Resolve(ctx, decisionID, models.VerdictApply, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve decision")
	}
	decision.NextTrust = next
	decision.Delta = next - decision.PriorTrust
	decision.Verdict = models.VerdictApply
	decision.ResolvedAt = &now
	s.metrics.IncQuorumOutcome(string(models.VerdictApply))

	ev := audit.NewEvent(audit.EventQuorumApplied)
	ev.ActorID = decision.ActorID
	ev.DecisionID = decision.ID
	ev.Detail = map[string]string{
		"signers": fmt.Sprintf("%d", decision.Quorum.SignerCount()),
		"next":    next.String(),
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, ev)

	return decision, nil
}

func (s *Service) suspend(ctx context.Context, decision *models.DeltaGuardDecision, reason string) (*models.DeltaGuardDecision, error) {
	now := s.clock()
	if err := s.decisions.Resolve(ctx, decision.ID, models.VerdictSuspended, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to suspend decision")
	}
	decision.Verdict = models.VerdictSuspended
	decision.ResolvedAt = &now
	s.metrics.IncQuorumOutcome(string(models.VerdictSuspended))

	ev := audit.NewEvent(audit.EventQuorumClosed)
	ev.ActorID = decision.ActorID
	ev.DecisionID = decision.ID
	ev.Reason = reason
	ports.LogAudit(ctx, s.logger, s.auditPublisher, ev)

	return decision, nil
}

// Cancel suspends a pending decision without applying it. Used when the
// revalidation window expires or an operator closes the quorum. Suspension
// is an incident: the caller supplies the reason that lands in the trail.
func (s *Service) Cancel(ctx context.Context, decisionID id.DecisionID, reason string) (*models.DeltaGuardDecision, error) {
	decision, err := s.decisions.Get(ctx, decisionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "decision not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load decision")
	}
	if decision.Verdict != models.VerdictPendingQuorum {
		if decision.Verdict == models.VerdictSuspended {
			return nil, dErrors.New(dErrors.CodeGuardSuspended, "the delta is already suspended")
		}
		return nil, dErrors.New(dErrors.CodeConflict, "decision is already resolved")
	}

	now := s.clock()
	if err := s.decisions.Resolve(ctx, decisionID, models.VerdictSuspended, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to suspend decision")
	}
	decision.Verdict = models.VerdictSuspended
	decision.ResolvedAt = &now
	s.metrics.IncQuorumOutcome(string(models.VerdictSuspended))

	ev := audit.NewEvent(audit.EventQuorumFailed)
	ev.ActorID = decision.ActorID
	ev.DecisionID = decision.ID
	ev.Reason = reason
	ev.Detail = map[string]string{
		"signers": fmt.Sprintf("%d", decision.Quorum.SignerCount()),
		"regions": fmt.Sprintf("%d", decision.Quorum.RegionCount()),
		"orgs":    fmt.Sprintf("%d", decision.Quorum.OrgCount()),
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, ev)

	return decision, nil
}

// Pending lists decisions still waiting on revalidation, oldest first.
func (s *Service) Pending(ctx context.Context) ([]*models.DeltaGuardDecision, error) {
	pending, err := s.decisions.ListByVerdict(ctx, models.VerdictPendingQuorum)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending decisions")
	}
	return pending, nil
}
