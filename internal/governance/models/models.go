package models

import (
	"encoding/hex"
	"time"

	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
)

// Candidate is one eligible participant in a pool snapshot.
type Candidate struct {
	ActorID id.ActorID    `json:"actor_id"`
	Region  id.Region     `json:"region"`
	Org     id.OrgID      `json:"org"`
	Trust   id.TrustValue `json:"trust"`
}

// EligibilityPool is an immutable snapshot of selection-eligible actors.
// Selection always runs against a snapshot, never live state, so reruns with
// the same inputs reproduce the same chamber.
type EligibilityPool struct {
	ID         id.PoolID   `json:"id"`
	TakenAt    time.Time   `json:"taken_at"`
	Candidates []Candidate `json:"candidates"`
}

// SelectionInputs are the public-randomness inputs that derive the selection
// seed. All three must be present; a missing beacon or nonce would make the
// seed predictable or replayable.
type SelectionInputs struct {
	Beacon     []byte
	PrevAnchor []byte
	Nonce      []byte
}

// Validate checks the inputs are usable.
func (in SelectionInputs) Validate() error {
	if len(in.Beacon) == 0 {
		return dErrors.New(dErrors.CodeValidation, "selection beacon is required")
	}
	if len(in.PrevAnchor) == 0 {
		return dErrors.New(dErrors.CodeValidation, "previous anchor commitment is required")
	}
	if len(in.Nonce) == 0 {
		return dErrors.New(dErrors.CodeValidation, "selection nonce is required")
	}
	return nil
}

// Chamber is a deterministically selected governance committee.
type Chamber struct {
	ID         id.ChamberID `json:"id"`
	PoolID     id.PoolID    `json:"pool_id"`
	Seed       []byte       `json:"seed"`
	Size       int          `json:"size"`
	RegionCap  int          `json:"region_cap"`
	Members    []Candidate  `json:"members"` // in rank order
	SelectedAt time.Time    `json:"selected_at"`
}

// HasMember reports whether the actor sits on the chamber.
func (c *Chamber) HasMember(actorID id.ActorID) bool {
	for _, m := range c.Members {
		if m.ActorID == actorID {
			return true
		}
	}
	return false
}

// ChamberRecord is the canonical, anchor-ready form of a selection. Member
// order is rank order; the seed is hex so the record survives any JSON
// round-trip byte-identically.
type ChamberRecord struct {
	ChamberID  string   `json:"chamber_id"`
	PoolID     string   `json:"pool_id"`
	Seed       string   `json:"seed"`
	Members    []string `json:"members"`
	SelectedAt string   `json:"selected_at"` // RFC 3339 UTC
}

// Record converts a chamber into its canonical anchor record.
func Record(c *Chamber) ChamberRecord {
	members := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		members = append(members, m.ActorID.String())
	}
	return ChamberRecord{
		ChamberID:  c.ID.String(),
		PoolID:     c.PoolID.String(),
		Seed:       hex.EncodeToString(c.Seed),
		Members:    members,
		SelectedAt: c.SelectedAt.UTC().Format(time.RFC3339),
	}
}
