package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ActorID identifies a participant (human or agent) in the trust system.
// This is a domain primitive that enforces validity at parse time.
type ActorID struct {
	uuid.UUID
}

// NewActorID generates a new random actor ID.
func NewActorID() ActorID {
	return ActorID{uuid.New()}
}

// ParseActorID validates and returns an ActorID.
func ParseActorID(s string) (ActorID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ActorID{}, fmt.Errorf("invalid actor id: %w", err)
	}
	return ActorID{u}, nil
}

// IsNil returns true if the actor ID is the zero value.
func (id ActorID) IsNil() bool {
	return id.UUID == uuid.Nil
}

// EventID identifies a single trust event.
type EventID struct {
	uuid.UUID
}

func NewEventID() EventID {
	return EventID{uuid.New()}
}

func ParseEventID(s string) (EventID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EventID{}, fmt.Errorf("invalid event id: %w", err)
	}
	return EventID{u}, nil
}

func (id EventID) IsNil() bool {
	return id.UUID == uuid.Nil
}

// DecisionID identifies a delta guard decision and its quorum lifecycle.
type DecisionID struct {
	uuid.UUID
}

func NewDecisionID() DecisionID {
	return DecisionID{uuid.New()}
}

func ParseDecisionID(s string) (DecisionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DecisionID{}, fmt.Errorf("invalid decision id: %w", err)
	}
	return DecisionID{u}, nil
}

func (id DecisionID) IsNil() bool {
	return id.UUID == uuid.Nil
}

// ChamberID identifies a selected governance committee.
type ChamberID struct {
	uuid.UUID
}

func NewChamberID() ChamberID {
	return ChamberID{uuid.New()}
}

func ParseChamberID(s string) (ChamberID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ChamberID{}, fmt.Errorf("invalid chamber id: %w", err)
	}
	return ChamberID{u}, nil
}

func (id ChamberID) IsNil() bool {
	return id.UUID == uuid.Nil
}

// PoolID identifies an eligibility pool snapshot.
type PoolID struct {
	uuid.UUID
}

func NewPoolID() PoolID {
	return PoolID{uuid.New()}
}

func ParsePoolID(s string) (PoolID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PoolID{}, fmt.Errorf("invalid pool id: %w", err)
	}
	return PoolID{u}, nil
}

func (id PoolID) IsNil() bool {
	return id.UUID == uuid.Nil
}

// Region is a geographic/jurisdictional grouping used for quorum and
// chamber diversity constraints.
type Region string

func ParseRegion(s string) (Region, error) {
	if s == "" {
		return "", fmt.Errorf("region cannot be empty")
	}
	return Region(s), nil
}

func (r Region) String() string { return string(r) }

// OrgID is an organizational grouping used for anti-capture constraints.
type OrgID string

func ParseOrgID(s string) (OrgID, error) {
	if s == "" {
		return "", fmt.Errorf("organization cannot be empty")
	}
	return OrgID(s), nil
}

func (o OrgID) String() string { return string(o) }

// Epoch numbers anchoring rounds. Strictly increasing per domain tag.
type Epoch uint64

// DomainTag namespaces Merkle roots and anchor commitments by record kind.
type DomainTag string

const (
	DomainTrustDeltas       DomainTag = "trust-deltas"
	DomainChamberSelections DomainTag = "chamber-selections"
	DomainAmendments        DomainTag = "amendments"
)

var knownDomainTags = map[DomainTag]bool{
	DomainTrustDeltas:       true,
	DomainChamberSelections: true,
	DomainAmendments:        true,
}

// ParseDomainTag validates and returns a DomainTag.
func ParseDomainTag(s string) (DomainTag, error) {
	tag := DomainTag(s)
	if !knownDomainTags[tag] {
		return "", fmt.Errorf("unknown domain tag: %s", s)
	}
	return tag, nil
}

func (d DomainTag) String() string { return string(d) }
