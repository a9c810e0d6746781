package handler

import (
	"encoding/base64"
	"strings"
	"time"

	"trustplane/internal/trust/models"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
)

// SubmitEventRequest is the HTTP request body for POST /trust/events.
type SubmitEventRequest struct {
	EventID string        `json:"event_id"`
	ActorID string        `json:"actor_id"`
	Work    WorkEvidence  `json:"work"`
	Review  *TrustReview  `json:"review,omitempty"`
	At      time.Time     `json:"occurred_at"`

	parsed models.TrustEvent
}

// WorkEvidence is the proof-of-work portion of an event.
type WorkEvidence struct {
	Ref         string    `json:"ref"`
	ArtifactSHA string    `json:"artifact_sha"`
	CompletedAt time.Time `json:"completed_at"`
}

// TrustReview is the proof-of-trust portion of an event.
type TrustReview struct {
	ReviewRef string  `json:"review_ref"`
	Reviewer  string  `json:"reviewer"`
	Approved  bool    `json:"approved"`
	Quality   float64 `json:"quality"`
}

// Validate validates and parses the request. Evidence consistency is checked
// again in the engine; this stage only rejects structurally broken input.
func (r *SubmitEventRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	eventID, err := id.ParseEventID(strings.TrimSpace(r.EventID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "event_id must be a UUID")
	}
	actorID, err := id.ParseActorID(strings.TrimSpace(r.ActorID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "actor_id must be a UUID")
	}

	event := models.TrustEvent{
		ID:      eventID,
		ActorID: actorID,
		Work: models.ProofOfWork{
			Ref:         strings.TrimSpace(r.Work.Ref),
			ArtifactSHA: strings.ToLower(strings.TrimSpace(r.Work.ArtifactSHA)),
			CompletedAt: r.Work.CompletedAt,
		},
		OccurredAt: r.At,
	}
	if r.Review != nil {
		reviewer, err := id.ParseActorID(strings.TrimSpace(r.Review.Reviewer))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "review.reviewer must be a UUID")
		}
		event.Review = &models.ProofOfTrust{
			ReviewRef: strings.TrimSpace(r.Review.ReviewRef),
			Reviewer:  reviewer,
			Approved:  r.Review.Approved,
			Quality:   r.Review.Quality,
		}
	}

	r.parsed = event
	return nil
}

// ParsedEvent returns the validated trust event.
func (r *SubmitEventRequest) ParsedEvent() models.TrustEvent {
	return r.parsed
}

// SubmitSignatureRequest is the HTTP request body for
// POST /trust/decisions/{id}/signatures.
type SubmitSignatureRequest struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"` // base64

	parsedSigner    id.ActorID
	parsedSignature []byte
}

// Validate validates and parses the request.
func (r *SubmitSignatureRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	signer, err := id.ParseActorID(strings.TrimSpace(r.Signer))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "signer must be a UUID")
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(r.Signature))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "signature must be base64")
	}
	if len(sig) == 0 {
		return dErrors.New(dErrors.CodeValidation, "signature is required")
	}

	r.parsedSigner = signer
	r.parsedSignature = sig
	return nil
}

// ParsedSigner returns the validated signer id.
func (r *SubmitSignatureRequest) ParsedSigner() id.ActorID { return r.parsedSigner }

// ParsedSignature returns the decoded signature bytes.
func (r *SubmitSignatureRequest) ParsedSignature() []byte { return r.parsedSignature }

// CancelQuorumRequest is the HTTP request body for
// POST /trust/decisions/{id}/cancel.
type CancelQuorumRequest struct {
	Reason string `json:"reason"`
}

// Validate validates the request.
func (r *CancelQuorumRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// RegisterActorRequest is the HTTP request body for POST /trust/actors.
type RegisterActorRequest struct {
	ActorID   string `json:"actor_id"`
	Region    string `json:"region"`
	Org       string `json:"org"`
	Kind      string `json:"kind"`
	PublicKey string `json:"public_key,omitempty"` // base64 Ed25519, humans only

	parsedActor models.Actor
	parsedKey   []byte
}

// Validate validates and parses the request.
func (r *RegisterActorRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	actorID, err := id.ParseActorID(strings.TrimSpace(r.ActorID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "actor_id must be a UUID")
	}
	region, err := id.ParseRegion(strings.TrimSpace(r.Region))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "region is required")
	}
	org, err := id.ParseOrgID(strings.TrimSpace(r.Org))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "org is required")
	}

	kind := models.ActorKind(strings.TrimSpace(r.Kind))
	if kind != models.ActorHuman && kind != models.ActorAgent {
		return dErrors.New(dErrors.CodeValidation, "kind must be human or agent")
	}

	if r.PublicKey != "" {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(r.PublicKey))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "public_key must be base64")
		}
		if len(key) != 32 {
			return dErrors.New(dErrors.CodeValidation, "public_key must be a 32-byte Ed25519 key")
		}
		r.parsedKey = key
	}

	r.parsedActor = models.Actor{
		ID:       actorID,
		Region:   region,
		Org:      org,
		Kind:     kind,
		Eligible: true,
	}
	return nil
}

// ParsedActor returns the validated actor record.
func (r *RegisterActorRequest) ParsedActor() models.Actor { return r.parsedActor }

// ParsedKey returns the decoded Ed25519 public key, or nil.
func (r *RegisterActorRequest) ParsedKey() []byte { return r.parsedKey }
