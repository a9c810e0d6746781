// Package ports defines shared interfaces for the trust module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"
	"crypto/ed25519"
	"log/slog"
	"time"

	"trustplane/internal/trust/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/audit"
)

// AuditPublisher emits audit events for compliance- and security-relevant
// trust operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ActorStore is the versioned trust store. Commits are optimistic: a write
// names the version it read, and loses with sentinel.ErrConflict if another
// event committed first.
type ActorStore interface {
	// Get retrieves an actor, or sentinel.ErrNotFound.
	Get(ctx context.Context, actorID id.ActorID) (*models.Actor, error)

	// Put inserts or replaces an actor record (seeding/administration).
	Put(ctx context.Context, actor *models.Actor) error

	// CompareAndCommit writes the actor's next machine-trust value iff the
	// stored version still equals expectedVersion, bumping the version and
	// activity timestamp. Returns the committed record.
	CompareAndCommit(ctx context.Context, actorID id.ActorID, expectedVersion uint64, next id.TrustValue, now time.Time) (*models.Actor, error)

	// HumanTrustStats returns population statistics over T_H for cap
	// derivation. Always computed from current state, never cached.
	HumanTrustStats(ctx context.Context) (models.PopulationStats, error)

	// List returns all actors, for eligibility snapshots.
	List(ctx context.Context) ([]*models.Actor, error)
}

// DecisionStore persists delta guard decisions and their quorum state so
// collection survives restarts.
type DecisionStore interface {
	// Create stores a new decision. The decision id must be unused.
	Create(ctx context.Context, decision *models.DeltaGuardDecision) error

	// Get retrieves a decision, or sentinel.ErrNotFound.
	Get(ctx context.Context, decisionID id.DecisionID) (*models.DeltaGuardDecision, error)

	// AppendSignature adds a quorum signature to a pending decision.
	// Returns sentinel.ErrInvalidState for resolved decisions and
	// sentinel.ErrAlreadyUsed for duplicate signers.
	AppendSignature(ctx context.Context, decisionID id.DecisionID, sig models.QuorumSignature) (*models.QuorumState, error)

	// Resolve moves a pending decision to a terminal verdict. Resolving an
	// already-terminal decision returns sentinel.ErrInvalidState.
	Resolve(ctx context.Context, decisionID id.DecisionID, verdict models.Verdict, resolvedAt time.Time) error

	// ListByVerdict returns decisions currently in the given verdict, in
	// creation order.
	ListByVerdict(ctx context.Context, verdict models.Verdict) ([]*models.DeltaGuardDecision, error)
}

// KeyDirectory resolves the published Ed25519 key for an actor.
type KeyDirectory interface {
	PublicKey(ctx context.Context, actorID id.ActorID) (ed25519.PublicKey, error)
}

// LogAudit emits an audit event, logging instead of failing when the
// pipeline is unavailable. Used on paths where the business operation
// outranks the trail.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
