package handler

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trustplane/internal/anchor/models"
	govmodels "trustplane/internal/governance/models"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/httputil"
	"trustplane/pkg/platform/merkle"
)

// RootBuilder is the root building surface the handler needs.
type RootBuilder interface {
	Build(ctx context.Context, domain id.DomainTag, epoch id.Epoch) (*models.RootRecord, error)
	Prove(domain id.DomainTag, index int) (*merkle.Proof, []byte, error)
}

// CertificateService is the signature collection surface the handler needs.
type CertificateService interface {
	Open(ctx context.Context, root *models.RootRecord, chamber *govmodels.Chamber) error
	Submit(ctx context.Context, domain id.DomainTag, epoch id.Epoch, signer id.ActorID, signature []byte) (*models.Certificate, error)
	Wait(ctx context.Context, domain id.DomainTag, epoch id.Epoch) (*models.Certificate, error)
}

// PublisherService is the publication surface the handler needs.
type PublisherService interface {
	Publish(ctx context.Context, cert *models.Certificate) (*models.AnchorCommitment, error)
	Commitment(ctx context.Context, domain id.DomainTag, epoch id.Epoch) (*models.AnchorCommitment, error)
}

// ChamberSource supplies the chamber that attests new roots.
type ChamberSource interface {
	LatestChamber(ctx context.Context) (*govmodels.Chamber, error)
}

// Handler wires anchoring endpoints to the root builder, certificate, and
// publisher services.
type Handler struct {
	roots     RootBuilder
	certs     CertificateService
	publisher PublisherService
	chambers  ChamberSource
	logger    *slog.Logger
}

// New constructs an anchor handler with its dependencies.
func New(roots RootBuilder, certs CertificateService, publisher PublisherService, chambers ChamberSource, logger *slog.Logger) *Handler {
	return &Handler{
		roots:     roots,
		certs:     certs,
		publisher: publisher,
		chambers:  chambers,
		logger:    logger,
	}
}

// Register mounts anchoring endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/anchors/{domain}/roots", h.HandleBuildRoot)
	r.Post("/anchors/{domain}/{epoch}/signatures", h.HandleSubmitSignature)
	r.Post("/anchors/{domain}/{epoch}/publish", h.HandlePublish)
	r.Get("/anchors/{domain}/{epoch}", h.HandleGetCommitment)
	r.Get("/anchors/{domain}/proofs/{index}", h.HandleGetProof)
}

func pathDomain(r *http.Request) (id.DomainTag, error) {
	tag, err := id.ParseDomainTag(chi.URLParam(r, "domain"))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "unknown domain tag")
	}
	return tag, nil
}

func pathEpoch(r *http.Request) (id.Epoch, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, "epoch"), 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "epoch must be a positive integer")
	}
	return id.Epoch(n), nil
}

// BuildRootRequest is the HTTP request body for POST /anchors/{domain}/roots.
type BuildRootRequest struct {
	Epoch uint64 `json:"epoch"`
}

// RootResponse is the HTTP shape of a built root.
type RootResponse struct {
	Domain    string    `json:"domain"`
	Epoch     uint64    `json:"epoch"`
	Root      string    `json:"root"`
	Leaves    int       `json:"leaves"`
	ChamberID string    `json:"chamber_id"`
	BuiltAt   time.Time `json:"built_at"`
}

// HandleBuildRoot handles POST /anchors/{domain}/roots. Operator surface:
// builds the epoch root and opens signature collection with the latest
// chamber.
func (h *Handler) HandleBuildRoot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domain, err := pathDomain(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[BuildRootRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Epoch == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "epoch must be a positive integer"))
		return
	}

	chamber, err := h.chambers.LatestChamber(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	root, err := h.roots.Build(ctx, domain, id.Epoch(req.Epoch))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.certs.Open(ctx, root, chamber); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "root built and collection opened",
		"domain", domain,
		"epoch", req.Epoch,
		"leaves", root.Leaves,
		"chamber_id", chamber.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, RootResponse{
		Domain:    domain.String(),
		Epoch:     uint64(root.Epoch),
		Root:      hex.EncodeToString(root.Root),
		Leaves:    root.Leaves,
		ChamberID: chamber.ID.String(),
		BuiltAt:   root.BuiltAt,
	})
}

// SignRootRequest is the HTTP request body for
// POST /anchors/{domain}/{epoch}/signatures.
type SignRootRequest struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"` // base64
}

// SignRootResponse reports collection progress.
type SignRootResponse struct {
	Issued     bool   `json:"issued"`
	Signatures int    `json:"signatures,omitempty"`
	Root       string `json:"root,omitempty"`
}

// HandleSubmitSignature handles POST /anchors/{domain}/{epoch}/signatures.
func (h *Handler) HandleSubmitSignature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domain, err := pathDomain(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	epoch, err := pathEpoch(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[SignRootRequest](w, r, h.logger)
	if !ok {
		return
	}
	signer, err := id.ParseActorID(strings.TrimSpace(req.Signer))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "signer must be a UUID"))
		return
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.Signature))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "signature must be base64"))
		return
	}

	cert, err := h.certs.Submit(ctx, domain, epoch, signer, sig)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := SignRootResponse{}
	if cert != nil {
		resp.Issued = true
		resp.Signatures = len(cert.Signatures)
		resp.Root = hex.EncodeToString(cert.Root)
		h.logger.InfoContext(ctx, "certificate issued",
			"domain", domain,
			"epoch", epoch,
			"signatures", len(cert.Signatures),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// CommitmentResponse is the HTTP shape of an anchor commitment.
type CommitmentResponse struct {
	Domain        string    `json:"domain"`
	Epoch         uint64    `json:"epoch"`
	Root          string    `json:"root"`
	PayloadDigest string    `json:"payload_digest"`
	SettlementRef string    `json:"settlement_ref"`
	PublishedAt   time.Time `json:"published_at"`
	Attempts      int       `json:"attempts"`
}

// FromCommitment converts a commitment to its HTTP shape.
func FromCommitment(c *models.AnchorCommitment) *CommitmentResponse {
	return &CommitmentResponse{
		Domain:        c.Domain.String(),
		Epoch:         uint64(c.Epoch),
		Root:          hex.EncodeToString(c.Root),
		PayloadDigest: hex.EncodeToString(c.PayloadDigest),
		SettlementRef: c.SettlementRef,
		PublishedAt:   c.PublishedAt,
		Attempts:      c.Attempts,
	}
}

// HandlePublish handles POST /anchors/{domain}/{epoch}/publish. Operator
// surface: waits for the certificate (bounded by the collection window) and
// pushes the anchor to settlement.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domain, err := pathDomain(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	epoch, err := pathEpoch(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cert, err := h.certs.Wait(ctx, domain, epoch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	commitment, err := h.publisher.Publish(ctx, cert)
	if err != nil {
		h.logger.ErrorContext(ctx, "anchor publication failed",
			"domain", domain,
			"epoch", epoch,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "anchor published",
		"domain", domain,
		"epoch", epoch,
		"settlement_ref", commitment.SettlementRef,
		"attempts", commitment.Attempts,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromCommitment(commitment))
}

// HandleGetCommitment handles GET /anchors/{domain}/{epoch}.
func (h *Handler) HandleGetCommitment(w http.ResponseWriter, r *http.Request) {
	domain, err := pathDomain(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	epoch, err := pathEpoch(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	commitment, err := h.publisher.Commitment(r.Context(), domain, epoch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCommitment(commitment))
}

// ProofResponse is the HTTP shape of an inclusion proof.
type ProofResponse struct {
	Index  int      `json:"index"`
	Leaves int      `json:"leaves"`
	Path   []string `json:"path"`
	Record string   `json:"record"` // canonical record bytes, base64
}

// HandleGetProof handles GET /anchors/{domain}/proofs/{index} against the
// most recently built root for the domain.
func (h *Handler) HandleGetProof(w http.ResponseWriter, r *http.Request) {
	domain, err := pathDomain(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "index must be an integer"))
		return
	}

	proof, record, err := h.roots.Prove(domain, index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	path := make([]string, 0, len(proof.Path))
	for _, p := range proof.Path {
		path = append(path, hex.EncodeToString(p))
	}
	httputil.WriteJSON(w, http.StatusOK, ProofResponse{
		Index:  proof.Index,
		Leaves: proof.Leaves,
		Path:   path,
		Record: base64.StdEncoding.EncodeToString(record),
	})
}
