package handler

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trustplane/internal/governance/models"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/httputil"
)

// Service is the governance surface the handler needs.
type Service interface {
	SnapshotPool(ctx context.Context) (*models.EligibilityPool, error)
	SelectChamber(ctx context.Context, poolID *id.PoolID, in models.SelectionInputs) (*models.Chamber, error)
	Pool(ctx context.Context, poolID id.PoolID) (*models.EligibilityPool, error)
	Chamber(ctx context.Context, chamberID id.ChamberID) (*models.Chamber, error)
	LatestChamber(ctx context.Context) (*models.Chamber, error)
}

// Handler wires governance endpoints to the governance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a governance handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts governance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/governance/pools", h.HandleSnapshotPool)
	r.Get("/governance/pools/{poolID}", h.HandleGetPool)
	r.Post("/governance/chambers", h.HandleSelectChamber)
	r.Get("/governance/chambers/latest", h.HandleLatestChamber)
	r.Get("/governance/chambers/{chamberID}", h.HandleGetChamber)
}

// SelectChamberRequest is the HTTP request body for POST /governance/chambers.
type SelectChamberRequest struct {
	PoolID     string `json:"pool_id,omitempty"`
	Beacon     string `json:"beacon"`      // base64
	PrevAnchor string `json:"prev_anchor"` // hex digest
	Nonce      string `json:"nonce"`       // base64

	parsedPoolID *id.PoolID
	parsedInputs models.SelectionInputs
}

// Validate validates and parses the request.
func (r *SelectChamberRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if s := strings.TrimSpace(r.PoolID); s != "" {
		poolID, err := id.ParsePoolID(s)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "pool_id must be a UUID")
		}
		r.parsedPoolID = &poolID
	}

	beacon, err := base64.StdEncoding.DecodeString(strings.TrimSpace(r.Beacon))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "beacon must be base64")
	}
	prev, err := hex.DecodeString(strings.TrimSpace(r.PrevAnchor))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "prev_anchor must be hex")
	}
	nonce, err := base64.StdEncoding.DecodeString(strings.TrimSpace(r.Nonce))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "nonce must be base64")
	}

	r.parsedInputs = models.SelectionInputs{Beacon: beacon, PrevAnchor: prev, Nonce: nonce}
	return r.parsedInputs.Validate()
}

// PoolResponse is the HTTP shape of a pool snapshot.
type PoolResponse struct {
	ID         string              `json:"id"`
	TakenAt    time.Time           `json:"taken_at"`
	Candidates []CandidateResponse `json:"candidates"`
}

// CandidateResponse is the HTTP shape of a pool candidate or chamber member.
type CandidateResponse struct {
	ActorID string `json:"actor_id"`
	Region  string `json:"region"`
	Org     string `json:"org"`
	Trust   string `json:"trust"`
}

// ChamberResponse is the HTTP shape of a selected chamber.
type ChamberResponse struct {
	ID         string              `json:"id"`
	PoolID     string              `json:"pool_id"`
	Seed       string              `json:"seed"`
	Size       int                 `json:"size"`
	RegionCap  int                 `json:"region_cap"`
	Members    []CandidateResponse `json:"members"`
	SelectedAt time.Time           `json:"selected_at"`
}

func fromCandidates(cs []models.Candidate) []CandidateResponse {
	out := make([]CandidateResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, CandidateResponse{
			ActorID: c.ActorID.String(),
			Region:  c.Region.String(),
			Org:     c.Org.String(),
			Trust:   c.Trust.String(),
		})
	}
	return out
}

// FromPool converts a pool snapshot to its HTTP shape.
func FromPool(p *models.EligibilityPool) *PoolResponse {
	return &PoolResponse{ID: p.ID.String(), TakenAt: p.TakenAt, Candidates: fromCandidates(p.Candidates)}
}

// FromChamber converts a chamber to its HTTP shape.
func FromChamber(c *models.Chamber) *ChamberResponse {
	return &ChamberResponse{
		ID:         c.ID.String(),
		PoolID:     c.PoolID.String(),
		Seed:       hex.EncodeToString(c.Seed),
		Size:       c.Size,
		RegionCap:  c.RegionCap,
		Members:    fromCandidates(c.Members),
		SelectedAt: c.SelectedAt,
	}
}

// HandleSnapshotPool handles POST /governance/pools. Operator surface.
func (h *Handler) HandleSnapshotPool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pool, err := h.service.SnapshotPool(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "eligibility pool snapshotted",
		"pool_id", pool.ID,
		"candidates", len(pool.Candidates),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromPool(pool))
}

// HandleGetPool handles GET /governance/pools/{poolID}.
func (h *Handler) HandleGetPool(w http.ResponseWriter, r *http.Request) {
	poolID, err := id.ParsePoolID(chi.URLParam(r, "poolID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "pool id must be a UUID"))
		return
	}

	pool, err := h.service.Pool(r.Context(), poolID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPool(pool))
}

// HandleSelectChamber handles POST /governance/chambers.
func (h *Handler) HandleSelectChamber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.Decode[SelectChamberRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	chamber, err := h.service.SelectChamber(ctx, req.parsedPoolID, req.parsedInputs)
	if err != nil {
		h.logger.ErrorContext(ctx, "chamber selection failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "chamber selected",
		"chamber_id", chamber.ID,
		"pool_id", chamber.PoolID,
		"seats", len(chamber.Members),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromChamber(chamber))
}

// HandleLatestChamber handles GET /governance/chambers/latest.
func (h *Handler) HandleLatestChamber(w http.ResponseWriter, r *http.Request) {
	chamber, err := h.service.LatestChamber(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromChamber(chamber))
}

// HandleGetChamber handles GET /governance/chambers/{chamberID}.
func (h *Handler) HandleGetChamber(w http.ResponseWriter, r *http.Request) {
	chamberID, err := id.ParseChamberID(chi.URLParam(r, "chamberID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "chamber id must be a UUID"))
		return
	}
	chamber, err := h.service.Chamber(r.Context(), chamberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromChamber(chamber))
}
