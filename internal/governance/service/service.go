// Package service orchestrates governance: eligibility snapshots and
// deterministic chamber selection over them.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trustplane/internal/governance/metrics"
	"trustplane/internal/governance/models"
	"trustplane/internal/governance/ports"
	"trustplane/internal/governance/selector"
	"trustplane/internal/platform/config"
	trustmodels "trustplane/internal/trust/models"
	trustports "trustplane/internal/trust/ports"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
	"trustplane/pkg/platform/audit"
	"trustplane/pkg/platform/sentinel"
)

// Type aliases for shared interfaces.
type (
	PoolStore      = ports.PoolStore
	ChamberStore   = ports.ChamberStore
	ActorStore     = trustports.ActorStore
	AuditPublisher = trustports.AuditPublisher
)

type Service struct {
	actors         ActorStore
	pools          PoolStore
	chambers       ChamberStore
	policy         config.ChamberPolicy
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

func New(actors ActorStore, pools PoolStore, chambers ChamberStore, policy config.ChamberPolicy, opts ...Option) (*Service, error) {
	if actors == nil {
		return nil, fmt.Errorf("actor store is required")
	}
	if pools == nil {
		return nil, fmt.Errorf("pool store is required")
	}
	if chambers == nil {
		return nil, fmt.Errorf("chamber store is required")
	}

	svc := &Service{
		actors:   actors,
		pools:    pools,
		chambers: chambers,
		policy:   policy,
		clock:    func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// SnapshotPool captures the current selection-eligible humans: not recused,
// marked eligible, and at or above the trust bar. The snapshot is immutable;
// later trust changes never disturb a selection already derived from it.
func (s *Service) SnapshotPool(ctx context.Context) (*models.EligibilityPool, error) {
	actors, err := s.actors.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list actors")
	}

	pool := &models.EligibilityPool{
		ID:      id.NewPoolID(),
		TakenAt: s.clock(),
	}
	for _, a := range actors {
		if a.Kind != trustmodels.ActorHuman || a.Recused || !a.Eligible {
			continue
		}
		if a.HumanTrust < s.policy.MinTrust {
			continue
		}
		pool.Candidates = append(pool.Candidates, models.Candidate{
			ActorID: a.ID,
			Region:  a.Region,
			Org:     a.Org,
			Trust:   a.HumanTrust,
		})
	}

	if err := s.pools.Save(ctx, pool); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save pool snapshot")
	}
	s.metrics.SetPoolCandidates(len(pool.Candidates))

	ev := audit.NewEvent(audit.EventPoolSnapshotTaken)
	ev.Detail = map[string]string{
		"pool_id":    pool.ID.String(),
		"candidates": fmt.Sprintf("%d", len(pool.Candidates)),
	}
	trustports.LogAudit(ctx, s.logger, s.auditPublisher, ev)

	return pool, nil
}

// SelectChamber runs deterministic selection against a snapshot. A nil
// poolID selects against the latest snapshot. Infeasible selections resolve
// to an incident, never a smaller chamber.
func (s *Service) SelectChamber(ctx context.Context, poolID *id.PoolID, in models.SelectionInputs) (*models.Chamber, error) {
	var (
		pool *models.EligibilityPool
		err  error
	)
	if poolID != nil {
		pool, err = s.pools.Get(ctx, *poolID)
	} else {
		pool, err = s.pools.Latest(ctx)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "eligibility pool not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pool snapshot")
	}

	// The snapshot is immutable, but recusal is not: an actor who recused
	// after the snapshot was taken must not be seated.
	recused, err := s.recusedActors(ctx)
	if err != nil {
		return nil, err
	}

	chamber, err := selector.Select(pool, in, selector.Constraints{
		Size:       s.policy.Size,
		RegionCap:  s.policy.RegionCap,
		MinRegions: s.policy.MinRegions,
		MinOrgs:    s.policy.MinOrgs,
	}, recused, s.clock())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeSelectionInfeasible) {
			s.metrics.IncSelection("infeasible")

			ev := audit.NewEvent(audit.EventSelectionInfeasible)
			ev.Reason = err.Error()
			ev.Detail = map[string]string{"pool_id": pool.ID.String()}
			trustports.LogAudit(ctx, s.logger, s.auditPublisher, ev)
		}
		return nil, err
	}

	if err := s.chambers.Save(ctx, chamber); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save chamber")
	}
	s.metrics.IncSelection("selected")

	ev := audit.NewEvent(audit.EventChamberSelected)
	ev.ChamberID = chamber.ID
	ev.Detail = map[string]string{
		"pool_id": pool.ID.String(),
		"seed":    hex.EncodeToString(chamber.Seed),
		"seats":   fmt.Sprintf("%d", len(chamber.Members)),
	}
	trustports.LogAudit(ctx, s.logger, s.auditPublisher, ev)

	return chamber, nil
}

// recusedActors collects the actors currently flagged recused.
func (s *Service) recusedActors(ctx context.Context) (map[id.ActorID]bool, error) {
	actors, err := s.actors.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list actors")
	}
	recused := make(map[id.ActorID]bool)
	for _, a := range actors {
		if a.Recused {
			recused[a.ID] = true
		}
	}
	return recused, nil
}

// Pool retrieves a snapshot.
func (s *Service) Pool(ctx context.Context, poolID id.PoolID) (*models.EligibilityPool, error) {
	pool, err := s.pools.Get(ctx, poolID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "eligibility pool not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pool snapshot")
	}
	return pool, nil
}

// Chamber retrieves a selected chamber.
func (s *Service) Chamber(ctx context.Context, chamberID id.ChamberID) (*models.Chamber, error) {
	chamber, err := s.chambers.Get(ctx, chamberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "chamber not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load chamber")
	}
	return chamber, nil
}

// LatestChamber retrieves the most recently selected chamber.
func (s *Service) LatestChamber(ctx context.Context) (*models.Chamber, error) {
	chamber, err := s.chambers.Latest(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no chamber selected yet")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load chamber")
	}
	return chamber, nil
}
