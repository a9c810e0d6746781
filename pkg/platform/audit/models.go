package audit

import (
	"context"
	"time"

	id "trustplane/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with constitutional significance:
	// committed trust deltas, quorum outcomes, chamber selections, anchor
	// commitments. These require tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers incidents that demand human follow-up:
	// quorum failures, infeasible selections, verification mismatches.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: quorum openings, signature submissions, publish retries.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	Reason    string

	// Subject identifiers; zero values mean not applicable.
	ActorID    id.ActorID
	DecisionID id.DecisionID
	ChamberID  id.ChamberID
	Domain     id.DomainTag
	Epoch      id.Epoch

	// Detail carries action-specific facts (threshold counts, root hashes,
	// settlement refs) needed by the human follow-up trail.
	Detail map[string]string
}

type AuditEvent string

const (
	// Trust engine / guard events
	EventDeltaApplied  AuditEvent = "delta_applied"
	EventQuorumOpened  AuditEvent = "quorum_opened"
	EventQuorumApplied AuditEvent = "quorum_applied"
	EventQuorumFailed  AuditEvent = "quorum_failed"
	EventQuorumClosed  AuditEvent = "quorum_closed"

	// Governance events
	EventPoolSnapshotTaken   AuditEvent = "pool_snapshot_taken"
	EventChamberSelected     AuditEvent = "chamber_selected"
	EventSelectionInfeasible AuditEvent = "selection_infeasible"

	// Anchoring / verification events
	EventCertificateIssued  AuditEvent = "certificate_issued"
	EventAnchorPublished    AuditEvent = "anchor_published"
	EventPublishRetried     AuditEvent = "publish_retried"
	EventVerificationFailed AuditEvent = "verification_failed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - tamper-proof storage, long retention
	EventDeltaApplied:      CategoryCompliance,
	EventQuorumApplied:     CategoryCompliance,
	EventChamberSelected:   CategoryCompliance,
	EventCertificateIssued: CategoryCompliance,
	EventAnchorPublished:   CategoryCompliance,

	// Security events - incidents, alerting
	EventQuorumFailed:        CategorySecurity,
	EventQuorumClosed:        CategorySecurity,
	EventSelectionInfeasible: CategorySecurity,
	EventVerificationFailed:  CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventQuorumOpened:      CategoryOperations,
	EventPoolSnapshotTaken: CategoryOperations,
	EventPublishRetried:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// NewEvent builds an Event for the given action with its category and
// timestamp filled in.
func NewEvent(action AuditEvent) Event {
	return Event{
		Category:  action.Category(),
		Timestamp: time.Now().UTC(),
		Action:    string(action),
	}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter publishes audit events to the audit pipeline.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
