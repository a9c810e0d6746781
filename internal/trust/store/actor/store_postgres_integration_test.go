//go:build integration

package actor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustplane/internal/trust/models"
	actorstore "trustplane/internal/trust/store/actor"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
	"trustplane/pkg/testutil/containers"
)

const actorsSchema = `
CREATE TABLE IF NOT EXISTS actors (
    id             UUID PRIMARY KEY,
    region         TEXT NOT NULL,
    org            TEXT NOT NULL,
    kind           TEXT NOT NULL,
    human_trust    BIGINT NOT NULL,
    machine_trust  BIGINT NOT NULL,
    recused        BOOLEAN NOT NULL DEFAULT FALSE,
    eligible       BOOLEAN NOT NULL DEFAULT TRUE,
    last_active_at TIMESTAMPTZ NOT NULL,
    version        BIGINT NOT NULL DEFAULT 0
)`

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *actorstore.PostgresStore
	now   time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	_, err := s.pg.DB.ExecContext(context.Background(), actorsSchema)
	s.Require().NoError(err)
	s.store = actorstore.NewPostgres(s.pg.DB)
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(context.Background(), "TRUNCATE actors")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) addActor(kind models.ActorKind, humanTrust, machineTrust id.TrustValue) *models.Actor {
	actor := &models.Actor{
		ID:           id.NewActorID(),
		Region:       "eu-west",
		Org:          "acme",
		Kind:         kind,
		HumanTrust:   humanTrust,
		MachineTrust: machineTrust,
		Eligible:     true,
		LastActiveAt: s.now,
		Version:      1,
	}
	s.Require().NoError(s.store.Put(context.Background(), actor))
	return actor
}

func (s *PostgresStoreSuite) TestPutAndGet() {
	ctx := context.Background()
	actor := s.addActor(models.ActorAgent, 0, 5000)

	got, err := s.store.Get(ctx, actor.ID)
	s.Require().NoError(err)
	s.Equal(actor.ID, got.ID)
	s.Equal(id.TrustValue(5000), got.MachineTrust)
	s.Equal(uint64(1), got.Version)
	s.True(s.now.Equal(got.LastActiveAt))

	_, err = s.store.Get(ctx, id.NewActorID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestPut_Upserts() {
	ctx := context.Background()
	actor := s.addActor(models.ActorHuman, 7000, 0)

	actor.Recused = true
	actor.Version = 2
	s.Require().NoError(s.store.Put(ctx, actor))

	got, err := s.store.Get(ctx, actor.ID)
	s.Require().NoError(err)
	s.True(got.Recused)
	s.Equal(uint64(2), got.Version)
}

func (s *PostgresStoreSuite) TestCompareAndCommit() {
	ctx := context.Background()
	actor := s.addActor(models.ActorAgent, 0, 5000)
	later := s.now.Add(time.Hour)

	s.Run("commits at the read version", func() {
		got, err := s.store.CompareAndCommit(ctx, actor.ID, 1, 5300, later)
		s.Require().NoError(err)
		s.Equal(id.TrustValue(5300), got.MachineTrust)
		s.Equal(uint64(2), got.Version)
		s.True(later.Equal(got.LastActiveAt))
	})

	s.Run("a stale version conflicts", func() {
		_, err := s.store.CompareAndCommit(ctx, actor.ID, 1, 5400, later)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("an unknown actor is not a conflict", func() {
		_, err := s.store.CompareAndCommit(ctx, id.NewActorID(), 1, 5400, later)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestHumanTrustStats() {
	ctx := context.Background()

	s.Run("empty population", func() {
		stats, err := s.store.HumanTrustStats(ctx)
		s.Require().NoError(err)
		s.Zero(stats.Count)
	})

	s.Run("only humans count, reported on the unit scale", func() {
		s.addActor(models.ActorHuman, 4000, 0)
		s.addActor(models.ActorHuman, 6000, 0)
		s.addActor(models.ActorAgent, 0, 9999)

		stats, err := s.store.HumanTrustStats(ctx)
		s.Require().NoError(err)
		s.Equal(2, stats.Count)
		s.InDelta(0.5, stats.Mean, 1e-9)
		s.InDelta(0.1, stats.Std, 1e-9)
	})
}

func (s *PostgresStoreSuite) TestList() {
	ctx := context.Background()
	s.addActor(models.ActorHuman, 7000, 0)
	s.addActor(models.ActorAgent, 0, 3000)

	actors, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(actors, 2)
}
