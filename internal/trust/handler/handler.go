package handler

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustplane/internal/trust/models"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/httputil"
	"trustplane/pkg/platform/sentinel"
)

// GuardService is the delta guard surface the handler needs.
type GuardService interface {
	Process(ctx context.Context, event models.TrustEvent) (*models.DeltaGuardDecision, error)
	Decision(ctx context.Context, decisionID id.DecisionID) (*models.DeltaGuardDecision, error)
}

// QuorumService is the revalidation surface the handler needs.
type QuorumService interface {
	SubmitSignature(ctx context.Context, decisionID id.DecisionID, signer id.ActorID, signature []byte) (*models.DeltaGuardDecision, error)
	Cancel(ctx context.Context, decisionID id.DecisionID, reason string) (*models.DeltaGuardDecision, error)
	Pending(ctx context.Context) ([]*models.DeltaGuardDecision, error)
}

// ActorRegistry is the actor administration surface the handler needs.
type ActorRegistry interface {
	Get(ctx context.Context, actorID id.ActorID) (*models.Actor, error)
	Put(ctx context.Context, actor *models.Actor) error
}

// KeyRegistrar enrolls revalidator keys.
type KeyRegistrar interface {
	Register(ctx context.Context, actorID id.ActorID, key ed25519.PublicKey) error
}

// Handler wires trust endpoints to the guard and quorum services.
type Handler struct {
	guard  GuardService
	quorum QuorumService
	actors ActorRegistry
	keys   KeyRegistrar
	logger *slog.Logger
}

// New constructs a trust handler with its dependencies.
func New(guard GuardService, quorum QuorumService, actors ActorRegistry, keys KeyRegistrar, logger *slog.Logger) *Handler {
	return &Handler{
		guard:  guard,
		quorum: quorum,
		actors: actors,
		keys:   keys,
		logger: logger,
	}
}

// Register mounts trust endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/trust/events", h.HandleSubmitEvent)
	r.Post("/trust/actors", h.HandleRegisterActor)
	r.Get("/trust/actors/{actorID}", h.HandleGetActor)
	r.Get("/trust/decisions/pending", h.HandleListPending)
	r.Get("/trust/decisions/{decisionID}", h.HandleGetDecision)
	r.Post("/trust/decisions/{decisionID}/signatures", h.HandleSubmitSignature)
	r.Post("/trust/decisions/{decisionID}/cancel", h.HandleCancelQuorum)
}

// HandleSubmitEvent handles POST /trust/events.
func (h *Handler) HandleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.Decode[SubmitEventRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, err := h.guard.Process(ctx, req.ParsedEvent())
	if err != nil {
		h.logger.ErrorContext(ctx, "trust event processing failed",
			"event_id", req.EventID,
			"actor_id", req.ActorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "trust event processed",
		"event_id", req.EventID,
		"actor_id", req.ActorID,
		"verdict", decision.Verdict,
		"delta", decision.Delta.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	status := http.StatusOK
	if decision.Verdict == models.VerdictPendingQuorum {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, FromDecision(decision))
}

// HandleRegisterActor handles POST /trust/actors. Operator surface: seeds or
// replaces an actor record and optionally enrolls its revalidation key.
func (h *Handler) HandleRegisterActor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[RegisterActorRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	actor := req.ParsedActor()
	actor.LastActiveAt = time.Now().UTC()
	if err := h.actors.Put(ctx, &actor); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store actor"))
		return
	}
	if key := req.ParsedKey(); key != nil {
		if err := h.keys.Register(ctx, actor.ID, key); err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enroll key"))
			return
		}
	}

	h.logger.InfoContext(ctx, "actor registered", "actor_id", actor.ID, "kind", actor.Kind)
	httputil.WriteJSON(w, http.StatusCreated, FromActor(&actor))
}

// HandleGetActor handles GET /trust/actors/{actorID}.
func (h *Handler) HandleGetActor(w http.ResponseWriter, r *http.Request) {
	actorID, err := id.ParseActorID(chi.URLParam(r, "actorID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "actor id must be a UUID"))
		return
	}

	actor, err := h.actors.Get(r.Context(), actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "actor not found"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromActor(actor))
}

// HandleGetDecision handles GET /trust/decisions/{decisionID}.
func (h *Handler) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	decisionID, err := id.ParseDecisionID(chi.URLParam(r, "decisionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "decision id must be a UUID"))
		return
	}

	decision, err := h.guard.Decision(r.Context(), decisionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}

// HandleListPending handles GET /trust/decisions/pending.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.quorum.Pending(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDecisions(pending))
}

// HandleSubmitSignature handles POST /trust/decisions/{decisionID}/signatures.
func (h *Handler) HandleSubmitSignature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	decisionID, err := id.ParseDecisionID(chi.URLParam(r, "decisionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "decision id must be a UUID"))
		return
	}

	req, ok := httputil.Decode[SubmitSignatureRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, err := h.quorum.SubmitSignature(ctx, decisionID, req.ParsedSigner(), req.ParsedSignature())
	if err != nil {
		h.logger.WarnContext(ctx, "revalidation signature rejected",
			"decision_id", decisionID,
			"signer", req.Signer,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "revalidation signature accepted",
		"decision_id", decisionID,
		"signer", req.Signer,
		"verdict", decision.Verdict,
		"signers", decision.Quorum.SignerCount(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}

// HandleCancelQuorum handles POST /trust/decisions/{decisionID}/cancel.
// Operator surface.
func (h *Handler) HandleCancelQuorum(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	decisionID, err := id.ParseDecisionID(chi.URLParam(r, "decisionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "decision id must be a UUID"))
		return
	}

	req, ok := httputil.Decode[CancelQuorumRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, err := h.quorum.Cancel(ctx, decisionID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "pending decision suspended", "decision_id", decisionID, "reason", req.Reason)
	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}
