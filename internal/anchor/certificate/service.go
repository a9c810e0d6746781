// Package certificate collects threshold signatures from a selected chamber
// over an epoch root. A certificate issues the moment t distinct members
// have signed; collection that outlives the configured window times out and
// the epoch is not anchored.
package certificate

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trustplane/internal/anchor/metrics"
	"trustplane/internal/anchor/models"
	govmodels "trustplane/internal/governance/models"
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
	KeyDirectory   = trustports.KeyDirectory
	AuditPublisher = trustports.AuditPublisher
)

type sessionKey struct {
	domain id.DomainTag
	epoch  id.Epoch
}

// session is one in-flight signature collection.
type session struct {
	cert    *models.Certificate
	chamber *govmodels.Chamber
	done    chan struct{}
	opened  time.Time
}

type Service struct {
	keys           KeyDirectory
	policy         config.CertificatePolicy
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	clock          func() time.Time

	mu       sync.Mutex
	sessions map[sessionKey]*session
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

func New(keys KeyDirectory, policy config.CertificatePolicy, opts ...Option) (*Service, error) {
	if keys == nil {
		return nil, fmt.Errorf("key directory is required")
	}
	if policy.Threshold < 1 {
		return nil, fmt.Errorf("certificate threshold must be at least 1")
	}

	svc := &Service{
		keys:     keys,
		policy:   policy,
		clock:    func() time.Time { return time.Now().UTC() },
		sessions: make(map[sessionKey]*session),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// SigningBytes returns the canonical byte content a chamber member signs.
func SigningBytes(domain id.DomainTag, epoch id.Epoch, root []byte, chamberID id.ChamberID) ([]byte, error) {
	return canonical.Marshal(struct {
		Domain    string `json:"domain"`
		Epoch     uint64 `json:"epoch"`
		Root      string `json:"root"`
		ChamberID string `json:"chamber_id"`
	}{
		Domain:    domain.String(),
		Epoch:     uint64(epoch),
		Root:      hex.EncodeToString(root),
		ChamberID: chamberID.String(),
	})
}

// Open starts signature collection for a root with the given chamber. At
// most one collection per (domain, epoch) may run.
func (s *Service) Open(_ context.Context, root *models.RootRecord, chamber *govmodels.Chamber) error {
	if chamber == nil || len(chamber.Members) == 0 {
		return dErrors.New(dErrors.CodeValidation, "a chamber with members is required")
	}
	if s.policy.Threshold > len(chamber.Members) {
		return dErrors.Newf(dErrors.CodeValidation,
			"threshold %d exceeds chamber size %d", s.policy.Threshold, len(chamber.Members))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := sessionKey{root.Domain, root.Epoch}
	if _, exists := s.sessions[k]; exists {
		return dErrors.New(dErrors.CodeConflict, "collection already open for this domain and epoch")
	}
	s.sessions[k] = &session{
		cert: &models.Certificate{
			ChamberID: chamber.ID,
			Domain:    root.Domain,
			Epoch:     root.Epoch,
			Root:      append([]byte(nil), root.Root...),
			Threshold: s.policy.Threshold,
		},
		chamber: chamber,
		done:    make(chan struct{}),
		opened:  s.clock(),
	}
	return nil
}

// Submit records one chamber member's signature. Returns the certificate
// once the threshold is met; before that the certificate return is nil.
func (s *Service) Submit(ctx context.Context, domain id.DomainTag, epoch id.Epoch, signer id.ActorID, signature []byte) (*models.Certificate, error) {
	key, err := s.keys.PublicKey(ctx, signer)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "signer has no published key")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve signer key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionKey{domain, epoch}]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no open collection for this domain and epoch")
	}
	if !sess.cert.IssuedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeConflict, "certificate already issued")
	}
	if !sess.chamber.HasMember(signer) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signer is not a member of the attesting chamber")
	}
	if sess.cert.Has(signer) {
		return nil, dErrors.New(dErrors.CodeConflict, "signer already contributed to this certificate")
	}

	payload, err := SigningBytes(domain, epoch, sess.cert.Root, sess.cert.ChamberID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build signing payload")
	}
	if !ed25519.Verify(key, payload, signature) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signature does not verify against the signer's key")
	}

	sess.cert.Signatures = append(sess.cert.Signatures, models.CertificateSignature{
		Signer:    signer,
		Signature: signature,
		SignedAt:  s.clock(),
	})
	if len(sess.cert.Signatures) < sess.cert.Threshold {
		return nil, nil
	}

	sess.cert.IssuedAt = s.clock()
	close(sess.done)
	s.metrics.IncCertificateIssued()
	s.metrics.ObserveCertificateWait(sess.cert.IssuedAt.Sub(sess.opened))

	ev := audit.NewEvent(audit.EventCertificateIssued)
	ev.ChamberID = sess.cert.ChamberID
	ev.Domain = domain
	ev.Epoch = epoch
	ev.Detail = map[string]string{
		"root":       hex.EncodeToString(sess.cert.Root),
		"signatures": fmt.Sprintf("%d", len(sess.cert.Signatures)),
	}
	trustports.LogAudit(ctx, s.logger, s.auditPublisher, ev)

	return cloneCert(sess.cert), nil
}

// Wait blocks until the certificate issues, the collection window closes,
// or the context ends. Timeouts tear the collection down: a certificate
// that missed its window never issues later.
func (s *Service) Wait(ctx context.Context, domain id.DomainTag, epoch id.Epoch) (*models.Certificate, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionKey{domain, epoch}]
	s.mu.Unlock()
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no open collection for this domain and epoch")
	}

	timer := time.NewTimer(s.policy.CollectTimeout)
	defer timer.Stop()

	select {
	case <-sess.done:
		s.mu.Lock()
		cert := cloneCert(sess.cert)
		delete(s.sessions, sessionKey{domain, epoch})
		s.mu.Unlock()
		return cert, nil
	case <-timer.C:
		s.mu.Lock()
		// The certificate may have issued just as the window closed; an
		// issued certificate always wins over the timer.
		select {
		case <-sess.done:
			cert := cloneCert(sess.cert)
			delete(s.sessions, sessionKey{domain, epoch})
			s.mu.Unlock()
			return cert, nil
		default:
		}
		got := len(sess.cert.Signatures)
		delete(s.sessions, sessionKey{domain, epoch})
		s.mu.Unlock()
		return nil, dErrors.Newf(dErrors.CodeCertificateTimeout,
			"collected %d of %d signatures before the window closed", got, s.policy.Threshold)
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeCertificateTimeout, "signature collection interrupted")
	}
}

// Verify checks a certificate against the chamber that issued it: enough
// distinct member signatures, each verifying over the canonical payload.
// Pure with respect to service state; usable by any verifier holding the
// chamber and keys.
func Verify(cert *models.Certificate, chamber *govmodels.Chamber, keys map[id.ActorID]ed25519.PublicKey) error {
	if cert == nil || chamber == nil {
		return dErrors.New(dErrors.CodeValidation, "certificate and chamber are required")
	}
	if cert.ChamberID != chamber.ID {
		return dErrors.New(dErrors.CodeUnverifiable, "certificate names a different chamber")
	}
	payload, err := SigningBytes(cert.Domain, cert.Epoch, cert.Root, cert.ChamberID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build signing payload")
	}

	valid := 0
	seen := make(map[id.ActorID]bool, len(cert.Signatures))
	for _, sig := range cert.Signatures {
		if seen[sig.Signer] || !chamber.HasMember(sig.Signer) {
			continue
		}
		key, ok := keys[sig.Signer]
		if !ok || !ed25519.Verify(key, payload, sig.Signature) {
			continue
		}
		seen[sig.Signer] = true
		valid++
	}
	if valid < cert.Threshold {
		return dErrors.Newf(dErrors.CodeUnverifiable,
			"certificate carries %d valid signatures, threshold is %d", valid, cert.Threshold)
	}
	return nil
}

func cloneCert(cert *models.Certificate) *models.Certificate {
	copied := *cert
	copied.Root = append([]byte(nil), cert.Root...)
	copied.Signatures = append([]models.CertificateSignature(nil), cert.Signatures...)
	return &copied
}
