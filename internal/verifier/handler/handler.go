package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"trustplane/internal/verifier"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/httputil"
)

// Service is the verification surface the handler needs.
type Service interface {
	Verify(ctx context.Context, domain id.DomainTag, epoch id.Epoch, records []any) (*verifier.Result, error)
}

// Handler wires the public verification endpoint to the verifier service.
// The endpoint is unauthenticated: verification is for outsiders.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verifier handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the verification endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify/{domain}/{epoch}", h.HandleVerify)
}

// VerifyRequest is the HTTP request body for POST /verify/{domain}/{epoch}.
// Records are the caller's copies of the canonical records, in domain order.
type VerifyRequest struct {
	Records []json.RawMessage `json:"records"`
}

// HandleVerify handles POST /verify/{domain}/{epoch}.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	domain, err := id.ParseDomainTag(chi.URLParam(r, "domain"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "unknown domain tag"))
		return
	}
	n, err := strconv.ParseUint(chi.URLParam(r, "epoch"), 10, 64)
	if err != nil || n == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "epoch must be a positive integer"))
		return
	}

	req, ok := httputil.Decode[VerifyRequest](w, r, h.logger)
	if !ok {
		return
	}
	records := make([]any, 0, len(req.Records))
	for _, raw := range req.Records {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "records must be JSON values"))
			return
		}
		records = append(records, v)
	}

	result, err := h.service.Verify(ctx, domain, id.Epoch(n), records)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification run",
		"domain", domain,
		"epoch", n,
		"verified", result.Verified,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if !result.Verified {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
