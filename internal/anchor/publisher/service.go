// Package publisher pushes certified epoch roots to the settlement layer.
// Epochs publish strictly in order per domain, and a retried epoch always
// resubmits the byte-identical payload.
package publisher

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"trustplane/internal/anchor/metrics"
	"trustplane/internal/anchor/models"
	"trustplane/internal/anchor/ports"
	"trustplane/internal/platform/config"
	trustports "trustplane/internal/trust/ports"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/audit"
	"trustplane/pkg/platform/canonical"
	"trustplane/pkg/platform/sentinel"
)

// Type aliases for shared interfaces.
type (
	SettlementClient = ports.SettlementClient
	AnchorStore      = ports.AnchorStore
	AuditPublisher   = trustports.AuditPublisher
)

var tracer = otel.Tracer("trustplane/internal/anchor/publisher")

type Service struct {
	store          AnchorStore
	settlement     SettlementClient
	policy         config.PublisherPolicy
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	clock          func() time.Time
	sleep          func(ctx context.Context, d time.Duration) error
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

// WithSleep overrides retry backoff waiting, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) {
		s.sleep = sleep
	}
}

func New(store AnchorStore, settlement SettlementClient, policy config.PublisherPolicy, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("anchor store is required")
	}
	if settlement == nil {
		return nil, fmt.Errorf("settlement client is required")
	}
	if policy.MaxAttempts < 1 {
		return nil, fmt.Errorf("publisher max attempts must be at least 1")
	}

	svc := &Service{
		store:      store,
		settlement: settlement,
		policy:     policy,
		clock:      func() time.Time { return time.Now().UTC() },
		sleep:      sleepCtx,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish anchors an issued certificate. Idempotent: a (domain, epoch) that
// already committed returns its existing commitment. An epoch ahead of its
// turn is rejected before any settlement traffic.
func (s *Service) Publish(ctx context.Context, cert *models.Certificate) (*models.AnchorCommitment, error) {
	ctx, span := tracer.Start(ctx, "publisher.Publish")
	defer span.End()

	if cert == nil || cert.IssuedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "an issued certificate is required")
	}

	if existing, err := s.store.Commitment(ctx, cert.Domain, cert.Epoch); err == nil {
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing commitment")
	}

	latest, err := s.store.LatestEpoch(ctx, cert.Domain)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read latest epoch")
	}
	if cert.Epoch != latest+1 {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
			"epoch %d cannot publish while latest committed epoch is %d", cert.Epoch, latest)
	}

	if err := s.store.SaveCertificate(ctx, cert); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store certificate")
	}

	payload := models.PayloadFor(cert)
	digest, err := canonical.Digest(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to digest anchor payload")
	}

	var (
		ref     string
		lastErr error
	)
	attempts := 0
	for attempts < s.policy.MaxAttempts {
		attempts++
		s.metrics.IncPublishAttempt()

		ref, lastErr = s.settlement.Publish(ctx, payload)
		if lastErr == nil {
			break
		}

		if s.logger != nil {
			s.logger.WarnContext(ctx, "anchor publish attempt failed",
				"domain", cert.Domain,
				"epoch", cert.Epoch,
				"attempt", attempts,
				"error", lastErr,
			)
		}
		ev := audit.NewEvent(audit.EventPublishRetried)
		ev.Domain = cert.Domain
		ev.Epoch = cert.Epoch
		ev.Reason = lastErr.Error()
		ev.Detail = map[string]string{"attempt": fmt.Sprintf("%d", attempts)}
		trustports.LogAudit(ctx, s.logger, s.auditPublisher, ev)

		if attempts < s.policy.MaxAttempts {
			if err := s.sleep(ctx, s.policy.Backoff*time.Duration(attempts)); err != nil {
				s.metrics.IncPublishOutcome("interrupted")
				return nil, dErrors.Wrap(err, dErrors.CodePublishFailed, "publication interrupted")
			}
		}
	}
	if lastErr != nil {
		s.metrics.IncPublishOutcome("failed")
		return nil, dErrors.Wrap(lastErr, dErrors.CodePublishFailed,
			"settlement rejected the anchor after all attempts")
	}

	commitment := &models.AnchorCommitment{
		Domain:        cert.Domain,
		Epoch:         cert.Epoch,
		Root:          append([]byte(nil), cert.Root...),
		PayloadDigest: digest[:],
		SettlementRef: ref,
		PublishedAt:   s.clock(),
		Attempts:      attempts,
	}
	if err := s.store.SaveCommitment(ctx, commitment); err != nil {
		if errors.Is(err, sentinel.ErrOutOfOrder) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "epoch committed out of order")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store commitment")
	}
	s.metrics.IncPublishOutcome("published")

	ev := audit.NewEvent(audit.EventAnchorPublished)
	ev.Domain = cert.Domain
	ev.Epoch = cert.Epoch
	ev.Detail = map[string]string{
		"root":           hex.EncodeToString(cert.Root),
		"settlement_ref": ref,
		"attempts":       fmt.Sprintf("%d", attempts),
	}
	trustports.LogAudit(ctx, s.logger, s.auditPublisher, ev)

	return commitment, nil
}

// Commitment retrieves a published anchor.
func (s *Service) Commitment(ctx context.Context, domain id.DomainTag, epoch id.Epoch) (*models.AnchorCommitment, error) {
	c, err := s.store.Commitment(ctx, domain, epoch)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no commitment for this domain and epoch")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load commitment")
	}
	return c, nil
}
