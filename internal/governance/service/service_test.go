package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustplane/internal/governance/models"
	chamberstore "trustplane/internal/governance/store/chamber"
	poolstore "trustplane/internal/governance/store/pool"
	"trustplane/internal/platform/config"
	trustmodels "trustplane/internal/trust/models"
	actorstore "trustplane/internal/trust/store/actor"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
)

// =============================================================================
// Governance Service Test Suite
// =============================================================================
// Covers pool snapshot filtering and the selection orchestration around the
// deterministic selector: snapshot immutability, latest-pool defaulting, and
// the infeasible-selection incident path.

type GovernanceSuite struct {
	suite.Suite
	actors   *actorstore.InMemoryStore
	pools    *poolstore.InMemoryStore
	chambers *chamberstore.InMemoryStore
	service  *Service
	now      time.Time
}

func TestGovernanceSuite(t *testing.T) {
	suite.Run(t, new(GovernanceSuite))
}

func (s *GovernanceSuite) SetupTest() {
	s.actors = actorstore.New()
	s.pools = poolstore.New()
	s.chambers = chamberstore.New()
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.actors, s.pools, s.chambers,
		config.ChamberPolicy{Size: 3, RegionCap: 2, MinRegions: 2, MinOrgs: 2, MinTrust: 2500},
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

func (s *GovernanceSuite) addActor(kind trustmodels.ActorKind, region id.Region, org id.OrgID, humanTrust id.TrustValue, recused, eligible bool) *trustmodels.Actor {
	actor := &trustmodels.Actor{
		ID:         id.NewActorID(),
		Region:     region,
		Org:        org,
		Kind:       kind,
		HumanTrust: humanTrust,
		Recused:    recused,
		Eligible:   eligible,
		Version:    1,
	}
	s.Require().NoError(s.actors.Put(context.Background(), actor))
	return actor
}

func (s *GovernanceSuite) inputs() models.SelectionInputs {
	return models.SelectionInputs{
		Beacon:     []byte("beacon"),
		PrevAnchor: []byte("prev"),
		Nonce:      []byte("nonce"),
	}
}

// =============================================================================
// Pool Snapshots
// =============================================================================

func (s *GovernanceSuite) TestSnapshotPool_Filters() {
	ctx := context.Background()

	included := s.addActor(trustmodels.ActorHuman, "eu-west", "acme", 8000, false, true)
	s.addActor(trustmodels.ActorAgent, "eu-west", "acme", 9000, false, true)  // agents never sit
	s.addActor(trustmodels.ActorHuman, "eu-west", "acme", 8000, true, true)   // recused
	s.addActor(trustmodels.ActorHuman, "eu-west", "acme", 8000, false, false) // ineligible
	s.addActor(trustmodels.ActorHuman, "eu-west", "acme", 2000, false, true)  // below the trust bar

	pool, err := s.service.SnapshotPool(ctx)
	s.Require().NoError(err)

	s.Require().Len(pool.Candidates, 1)
	s.Equal(included.ID, pool.Candidates[0].ActorID)
	s.Equal(included.Region, pool.Candidates[0].Region)
	s.Equal(s.now, pool.TakenAt)

	stored, err := s.service.Pool(ctx, pool.ID)
	s.Require().NoError(err)
	s.Len(stored.Candidates, 1)
}

func (s *GovernanceSuite) TestSnapshotPool_IsImmutable() {
	ctx := context.Background()
	human := s.addActor(trustmodels.ActorHuman, "eu-west", "acme", 8000, false, true)

	pool, err := s.service.SnapshotPool(ctx)
	s.Require().NoError(err)

	// Recusal after the snapshot must not disturb it.
	human.Recused = true
	s.Require().NoError(s.actors.Put(ctx, human))

	stored, err := s.service.Pool(ctx, pool.ID)
	s.Require().NoError(err)
	s.Len(stored.Candidates, 1)
}

// =============================================================================
// Chamber Selection
// =============================================================================

func (s *GovernanceSuite) seedEligibleHumans() {
	s.addActor(trustmodels.ActorHuman, "eu-west", "acme", 8000, false, true)
	s.addActor(trustmodels.ActorHuman, "eu-east", "globex", 8000, false, true)
	s.addActor(trustmodels.ActorHuman, "ap-south", "initech", 8000, false, true)
	s.addActor(trustmodels.ActorHuman, "us-east", "umbrella", 8000, false, true)
}

func (s *GovernanceSuite) TestSelectChamber() {
	ctx := context.Background()
	s.seedEligibleHumans()

	pool, err := s.service.SnapshotPool(ctx)
	s.Require().NoError(err)

	s.Run("selects against an explicit pool", func() {
		chamber, err := s.service.SelectChamber(ctx, &pool.ID, s.inputs())
		s.Require().NoError(err)
		s.Equal(pool.ID, chamber.PoolID)
		s.Len(chamber.Members, 3)

		stored, err := s.service.Chamber(ctx, chamber.ID)
		s.Require().NoError(err)
		s.Equal(chamber.ID, stored.ID)

		latest, err := s.service.LatestChamber(ctx)
		s.Require().NoError(err)
		s.Equal(chamber.ID, latest.ID)
	})

	s.Run("nil pool id selects against the latest snapshot", func() {
		chamber, err := s.service.SelectChamber(ctx, nil, s.inputs())
		s.Require().NoError(err)
		s.Equal(pool.ID, chamber.PoolID)
	})

	s.Run("unknown pool id", func() {
		missing := id.NewPoolID()
		_, err := s.service.SelectChamber(ctx, &missing, s.inputs())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *GovernanceSuite) TestSelectChamber_Infeasible() {
	ctx := context.Background()
	// Two candidates cannot fill three seats.
	s.addActor(trustmodels.ActorHuman, "eu-west", "acme", 8000, false, true)
	s.addActor(trustmodels.ActorHuman, "eu-east", "globex", 8000, false, true)

	_, err := s.service.SnapshotPool(ctx)
	s.Require().NoError(err)

	_, err = s.service.SelectChamber(ctx, nil, s.inputs())
	s.True(dErrors.HasCode(err, dErrors.CodeSelectionInfeasible))

	_, err = s.service.LatestChamber(ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "no partial chamber is ever saved")
}

func (s *GovernanceSuite) TestSelectChamber_DiversityFloors() {
	ctx := context.Background()
	// Three seats fill fine under the region cap, but one org short of the
	// floor: everything here belongs to acme.
	s.addActor(trustmodels.ActorHuman, "eu-west", "acme", 8000, false, true)
	s.addActor(trustmodels.ActorHuman, "eu-east", "acme", 8000, false, true)
	s.addActor(trustmodels.ActorHuman, "ap-south", "acme", 8000, false, true)
	s.addActor(trustmodels.ActorHuman, "us-east", "acme", 8000, false, true)

	_, err := s.service.SnapshotPool(ctx)
	s.Require().NoError(err)

	_, err = s.service.SelectChamber(ctx, nil, s.inputs())
	s.True(dErrors.HasCode(err, dErrors.CodeSelectionInfeasible))

	_, err = s.service.LatestChamber(ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "a chamber below the diversity floor is never saved")
}

func (s *GovernanceSuite) TestSelectChamber_LateRecusalExcluded() {
	ctx := context.Background()
	s.seedEligibleHumans()
	recusant := s.addActor(trustmodels.ActorHuman, "sa-east", "hooli", 8000, false, true)

	pool, err := s.service.SnapshotPool(ctx)
	s.Require().NoError(err)
	s.Len(pool.Candidates, 5)

	// Recusal lands after the snapshot; the snapshot stays intact but the
	// selection must still honor it, whatever the recusant's rank.
	recusant.Recused = true
	s.Require().NoError(s.actors.Put(ctx, recusant))

	for _, nonce := range []string{"nonce", "nonce-2", "nonce-3", "nonce-4", "nonce-5"} {
		in := s.inputs()
		in.Nonce = []byte(nonce)
		chamber, err := s.service.SelectChamber(ctx, &pool.ID, in)
		s.Require().NoError(err)
		s.Len(chamber.Members, 3)
		s.False(chamber.HasMember(recusant.ID), "an actor recused after the snapshot cannot be seated")
	}
}

func (s *GovernanceSuite) TestSelectChamber_NoPools() {
	_, err := s.service.SelectChamber(context.Background(), nil, s.inputs())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
