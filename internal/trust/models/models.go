package models

import (
	"time"

	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
)

// ActorKind distinguishes human participants (who may sign revalidations)
// from machine agents.
type ActorKind string

const (
	ActorHuman ActorKind = "human"
	ActorAgent ActorKind = "agent"
)

// Actor is the per-participant trust record. Mutated only through
// guard-approved commits against the versioned store; Version increases by
// one per committed trust change.
type Actor struct {
	ID     id.ActorID
	Region id.Region
	Org    id.OrgID
	Kind   ActorKind

	// HumanTrust (T_H) is only settable via human-chamber paths and feeds
	// the population cap. MachineTrust (T_M) is what trust events move.
	HumanTrust   id.TrustValue
	MachineTrust id.TrustValue

	Recused      bool
	Eligible     bool
	LastActiveAt time.Time
	Version      uint64
}

// ProofOfWork is the mandatory evidence that effort occurred. It never
// produces trust gain by itself.
type ProofOfWork struct {
	Ref         string    `json:"ref"`
	ArtifactSHA string    `json:"artifact_sha"` // hex SHA-256 of the work artifact
	CompletedAt time.Time `json:"completed_at"`
}

// Validate checks internal consistency of the work evidence.
func (p ProofOfWork) Validate() error {
	if p.Ref == "" {
		return dErrors.New(dErrors.CodeEvidenceInvalid, "proof-of-work ref is required")
	}
	if len(p.ArtifactSHA) != 64 {
		return dErrors.New(dErrors.CodeEvidenceInvalid, "proof-of-work artifact digest must be a hex SHA-256")
	}
	if p.CompletedAt.IsZero() {
		return dErrors.New(dErrors.CodeEvidenceInvalid, "proof-of-work completion time is required")
	}
	return nil
}

// ProofOfTrust is the independently reviewed evidence of verified quality.
// It is the only valid source of trust gain.
type ProofOfTrust struct {
	ReviewRef string     `json:"review_ref"`
	Reviewer  id.ActorID `json:"reviewer"`
	Approved  bool       `json:"approved"`
	Quality   float64    `json:"quality"` // verified quality in [0, 1]
}

// Validate checks internal consistency of the review evidence.
func (p ProofOfTrust) Validate() error {
	if p.ReviewRef == "" {
		return dErrors.New(dErrors.CodeEvidenceInvalid, "proof-of-trust review ref is required")
	}
	if p.Reviewer.IsNil() {
		return dErrors.New(dErrors.CodeEvidenceInvalid, "proof-of-trust reviewer is required")
	}
	if p.Quality < 0 || p.Quality > 1 {
		return dErrors.New(dErrors.CodeEvidenceInvalid, "proof-of-trust quality must be in [0,1]")
	}
	return nil
}

// TrustEvent is an immutable, schema-validated input to the trust engine.
type TrustEvent struct {
	ID         id.EventID
	ActorID    id.ActorID
	Work       ProofOfWork
	Review     *ProofOfTrust // optional; nil means no independent review
	OccurredAt time.Time
}

// Verdict is the terminal or pending disposition of a computed delta.
type Verdict string

const (
	VerdictApply         Verdict = "apply"
	VerdictPendingQuorum Verdict = "pending-quorum"
	VerdictSuspended     Verdict = "suspended"
)

// Terminal reports whether the verdict ends the decision lifecycle.
func (v Verdict) Terminal() bool {
	return v == VerdictApply || v == VerdictSuspended
}

// QuorumSignature is one human revalidation signature.
type QuorumSignature struct {
	Signer    id.ActorID
	Region    id.Region
	Org       id.OrgID
	Signature []byte
	SignedAt  time.Time
}

// QuorumState tracks revalidation progress for a pending decision.
type QuorumState struct {
	Signatures []QuorumSignature
}

// Has reports whether the signer already contributed.
func (q QuorumState) Has(signer id.ActorID) bool {
	for _, s := range q.Signatures {
		if s.Signer == signer {
			return true
		}
	}
	return false
}

// SignerCount returns the number of distinct signers.
func (q QuorumState) SignerCount() int {
	return len(q.Signatures)
}

// RegionCount returns the number of distinct signer regions.
func (q QuorumState) RegionCount() int {
	seen := make(map[id.Region]struct{}, len(q.Signatures))
	for _, s := range q.Signatures {
		seen[s.Region] = struct{}{}
	}
	return len(seen)
}

// OrgCount returns the number of distinct signer organizations.
func (q QuorumState) OrgCount() int {
	seen := make(map[id.OrgID]struct{}, len(q.Signatures))
	for _, s := range q.Signatures {
		seen[s.Org] = struct{}{}
	}
	return len(seen)
}

// DeltaGuardDecision captures a computed trust delta and its disposition.
// Created once per trust event; resolved to a terminal verdict before the
// owning event is archived.
type DeltaGuardDecision struct {
	ID      id.DecisionID
	EventID id.EventID
	ActorID id.ActorID

	// BaseVersion is the actor version the delta was computed against.
	// Commits compare against it so concurrent events serialize.
	BaseVersion uint64

	PriorTrust id.TrustValue
	NextTrust  id.TrustValue
	Delta      id.TrustValue // signed

	Gain    id.TrustValue
	Penalty id.TrustValue
	Decay   id.TrustValue

	Verdict    Verdict
	Quorum     QuorumState
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// PopulationStats summarizes the human-trust population for cap derivation.
type PopulationStats struct {
	Count int
	Mean  float64
	Std   float64
}

// TrustDeltaRecord is the canonical, anchor-ready form of a committed trust
// change. Trust values serialize as fixed-point strings; this struct is fed
// straight to the root builder.
type TrustDeltaRecord struct {
	DecisionID string        `json:"decision_id"`
	EventID    string        `json:"event_id"`
	ActorID    string        `json:"actor_id"`
	Prior      id.TrustValue `json:"prior"`
	Next       id.TrustValue `json:"next"`
	Delta      id.TrustValue `json:"delta"`
	Verdict    string        `json:"verdict"`
	Version    uint64        `json:"version"`
	ResolvedAt string        `json:"resolved_at"` // RFC 3339 UTC
}

// DeltaRecord converts a resolved decision into its canonical anchor record.
func DeltaRecord(d *DeltaGuardDecision) TrustDeltaRecord {
	resolved := ""
	if d.ResolvedAt != nil {
		resolved = d.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return TrustDeltaRecord{
		DecisionID: d.ID.String(),
		EventID:    d.EventID.String(),
		ActorID:    d.ActorID.String(),
		Prior:      d.PriorTrust,
		Next:       d.NextTrust,
		Delta:      d.Delta,
		Verdict:    string(d.Verdict),
		Version:    d.BaseVersion + 1,
		ResolvedAt: resolved,
	}
}
