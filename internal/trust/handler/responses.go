package handler

import (
	"time"

	"trustplane/internal/trust/models"
)

// DecisionResponse is the HTTP shape of a delta guard decision.
type DecisionResponse struct {
	ID          string         `json:"id"`
	EventID     string         `json:"event_id"`
	ActorID     string         `json:"actor_id"`
	Prior       string         `json:"prior"`
	Next        string         `json:"next"`
	Delta       string         `json:"delta"`
	Verdict     string         `json:"verdict"`
	BaseVersion uint64         `json:"base_version"`
	Quorum      QuorumResponse `json:"quorum"`
	CreatedAt   time.Time      `json:"created_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

// QuorumResponse summarizes revalidation progress.
type QuorumResponse struct {
	Signers int `json:"signers"`
	Regions int `json:"regions"`
	Orgs    int `json:"orgs"`
}

// FromDecision converts a domain decision to its HTTP shape.
func FromDecision(d *models.DeltaGuardDecision) *DecisionResponse {
	return &DecisionResponse{
		ID:          d.ID.String(),
		EventID:     d.EventID.String(),
		ActorID:     d.ActorID.String(),
		Prior:       d.PriorTrust.String(),
		Next:        d.NextTrust.String(),
		Delta:       d.Delta.String(),
		Verdict:     string(d.Verdict),
		BaseVersion: d.BaseVersion,
		Quorum: QuorumResponse{
			Signers: d.Quorum.SignerCount(),
			Regions: d.Quorum.RegionCount(),
			Orgs:    d.Quorum.OrgCount(),
		},
		CreatedAt:  d.CreatedAt,
		ResolvedAt: d.ResolvedAt,
	}
}

// ActorResponse is the HTTP shape of an actor record.
type ActorResponse struct {
	ID           string    `json:"id"`
	Region       string    `json:"region"`
	Org          string    `json:"org"`
	Kind         string    `json:"kind"`
	HumanTrust   string    `json:"human_trust"`
	MachineTrust string    `json:"machine_trust"`
	Recused      bool      `json:"recused"`
	Eligible     bool      `json:"eligible"`
	LastActiveAt time.Time `json:"last_active_at"`
	Version      uint64    `json:"version"`
}

// FromActor converts a domain actor to its HTTP shape.
func FromActor(a *models.Actor) *ActorResponse {
	return &ActorResponse{
		ID:           a.ID.String(),
		Region:       a.Region.String(),
		Org:          a.Org.String(),
		Kind:         string(a.Kind),
		HumanTrust:   a.HumanTrust.String(),
		MachineTrust: a.MachineTrust.String(),
		Recused:      a.Recused,
		Eligible:     a.Eligible,
		LastActiveAt: a.LastActiveAt,
		Version:      a.Version,
	}
}

// DecisionListResponse wraps a list of decisions.
type DecisionListResponse struct {
	Decisions []*DecisionResponse `json:"decisions"`
}

// FromDecisions converts a decision list to its HTTP shape.
func FromDecisions(list []*models.DeltaGuardDecision) *DecisionListResponse {
	out := make([]*DecisionResponse, 0, len(list))
	for _, d := range list {
		out = append(out, FromDecision(d))
	}
	return &DecisionListResponse{Decisions: out}
}
