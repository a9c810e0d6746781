// Package verifier replays the public verification procedure: recompute the
// epoch root from the canonical records, check the chamber certificate, and
// confirm the settlement layer holds the same anchor. Anyone outside the
// system with the records and the anchor can run the same three checks.
package verifier

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"trustplane/internal/anchor/certificate"
	anchormodels "trustplane/internal/anchor/models"
	anchorports "trustplane/internal/anchor/ports"
	govports "trustplane/internal/governance/ports"
	trustports "trustplane/internal/trust/ports"
	"trustplane/internal/verifier/metrics"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/audit"
	"trustplane/pkg/platform/canonical"
	"trustplane/pkg/platform/merkle"
	"trustplane/pkg/platform/sentinel"
)

// Type aliases for shared interfaces.
type (
	AnchorStore      = anchorports.AnchorStore
	SettlementClient = anchorports.SettlementClient
	ChamberStore     = govports.ChamberStore
	KeyDirectory     = trustports.KeyDirectory
	AuditPublisher   = trustports.AuditPublisher
)

var tracer = otel.Tracer("trustplane/internal/verifier")

// Result is the outcome of one verification run. A run either verifies on
// all three checks or is unverifiable; there is no partial credit.
type Result struct {
	Domain   id.DomainTag `json:"domain"`
	Epoch    id.Epoch     `json:"epoch"`
	Verified bool         `json:"verified"`

	RootMatches         bool `json:"root_matches"`
	CertificateValid    bool `json:"certificate_valid"`
	SettlementConfirmed bool `json:"settlement_confirmed"`

	Reasons    []string  `json:"reasons,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
}

type Service struct {
	store          AnchorStore
	settlement     SettlementClient
	chambers       ChamberStore
	keys           KeyDirectory
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	clock          func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides time acquisition, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(store AnchorStore, settlement SettlementClient, chambers ChamberStore, keys KeyDirectory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("anchor store is required")
	}
	if settlement == nil {
		return nil, fmt.Errorf("settlement client is required")
	}
	if chambers == nil {
		return nil, fmt.Errorf("chamber store is required")
	}
	if keys == nil {
		return nil, fmt.Errorf("key directory is required")
	}

	svc := &Service{
		store:      store,
		settlement: settlement,
		chambers:   chambers,
		keys:       keys,
		clock:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Verify replays the verification procedure for one anchored epoch against
// the caller-supplied records. The three checks run concurrently; an
// infrastructure failure aborts the run, while any mismatch lands in the
// result as unverifiable.
func (s *Service) Verify(ctx context.Context, domain id.DomainTag, epoch id.Epoch, records []any) (*Result, error) {
	ctx, span := tracer.Start(ctx, "verifier.Verify")
	defer span.End()

	commitment, err := s.store.Commitment(ctx, domain, epoch)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "nothing anchored for this domain and epoch")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load commitment")
	}
	cert, err := s.store.Certificate(ctx, domain, epoch)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no certificate for this domain and epoch")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}

	result := &Result{Domain: domain, Epoch: epoch}
	var rootReason, certReason, settleReason string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ok, reason, err := s.checkRoot(commitment, records)
		result.RootMatches, rootReason = ok, reason
		return err
	})
	g.Go(func() error {
		ok, reason, err := s.checkCertificate(gctx, commitment, cert)
		result.CertificateValid, certReason = ok, reason
		return err
	})
	g.Go(func() error {
		ok, reason, err := s.checkSettlement(gctx, commitment)
		result.SettlementConfirmed, settleReason = ok, reason
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "verification aborted")
	}

	for _, reason := range []string{rootReason, certReason, settleReason} {
		if reason != "" {
			result.Reasons = append(result.Reasons, reason)
		}
	}
	result.Verified = result.RootMatches && result.CertificateValid && result.SettlementConfirmed
	result.VerifiedAt = s.clock()

	if result.Verified {
		s.metrics.IncVerification("verified")
	} else {
		s.metrics.IncVerification("unverifiable")

		ev := audit.NewEvent(audit.EventVerificationFailed)
		ev.Domain = domain
		ev.Epoch = epoch
		ev.Reason = fmt.Sprintf("%v", result.Reasons)
		trustports.LogAudit(ctx, s.logger, s.auditPublisher, ev)
	}
	return result, nil
}

func (s *Service) checkRoot(commitment *anchormodels.AnchorCommitment, records []any) (bool, string, error) {
	if len(records) == 0 {
		return false, "no records supplied to recompute the root", nil
	}
	leaves := make([][]byte, len(records))
	for i, r := range records {
		leaf, err := canonical.Marshal(r)
		if err != nil {
			return false, "", fmt.Errorf("canonicalize record %d: %w", i, err)
		}
		leaves[i] = leaf
	}
	root, err := merkle.Root(leaves)
	if err != nil {
		return false, "", err
	}
	if !bytes.Equal(root, commitment.Root) {
		return false, fmt.Sprintf("recomputed root %s does not match anchored root %s",
			hex.EncodeToString(root), hex.EncodeToString(commitment.Root)), nil
	}
	return true, "", nil
}

func (s *Service) checkCertificate(ctx context.Context, commitment *anchormodels.AnchorCommitment, cert *anchormodels.Certificate) (bool, string, error) {
	if !bytes.Equal(cert.Root, commitment.Root) {
		return false, "certificate attests a different root than the commitment", nil
	}

	chamber, err := s.chambers.Get(ctx, cert.ChamberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, "attesting chamber is unknown", nil
		}
		return false, "", err
	}

	keys := make(map[id.ActorID]ed25519.PublicKey, len(cert.Signatures))
	for _, sig := range cert.Signatures {
		key, err := s.keys.PublicKey(ctx, sig.Signer)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue // unknown signers simply do not count toward the threshold
		}
		if err != nil {
			return false, "", err
		}
		keys[sig.Signer] = key
	}

	if err := certificate.Verify(cert, chamber, keys); err != nil {
		return false, err.Error(), nil
	}
	return true, "", nil
}

func (s *Service) checkSettlement(ctx context.Context, commitment *anchormodels.AnchorCommitment) (bool, string, error) {
	receipt, err := s.settlement.Confirm(ctx, commitment.Domain.String(), uint64(commitment.Epoch))
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, "settlement layer holds no anchor for this epoch", nil
	}
	if err != nil {
		return false, "", err
	}
	if receipt.Ref != commitment.SettlementRef {
		return false, "settlement reference does not match the recorded commitment", nil
	}
	if receipt.Root != hex.EncodeToString(commitment.Root) {
		return false, "settlement layer holds a different root", nil
	}
	return true, "", nil
}
