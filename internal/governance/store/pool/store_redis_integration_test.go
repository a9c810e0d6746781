//go:build integration

package pool_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustplane/internal/governance/models"
	"trustplane/internal/governance/store/pool"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
	"trustplane/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *pool.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = pool.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func makePool() *models.EligibilityPool {
	return &models.EligibilityPool{
		ID: id.NewPoolID(),
		Candidates: []models.Candidate{
			{ActorID: id.NewActorID(), Region: "eu-west", Org: "acme", Trust: 8000},
			{ActorID: id.NewActorID(), Region: "eu-east", Org: "globex", Trust: 6500},
		},
		TakenAt: time.Now().UTC().Truncate(time.Second),
	}
}

func (s *RedisStoreSuite) TestSaveAndGet() {
	ctx := context.Background()
	snapshot := makePool()

	s.Require().NoError(s.store.Save(ctx, snapshot))

	got, err := s.store.Get(ctx, snapshot.ID)
	s.Require().NoError(err)
	s.Equal(snapshot.ID, got.ID)
	s.Equal(snapshot.Candidates, got.Candidates)
	s.True(snapshot.TakenAt.Equal(got.TakenAt))
}

func (s *RedisStoreSuite) TestGet_Unknown() {
	_, err := s.store.Get(context.Background(), id.NewPoolID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// Snapshots are immutable once taken: a second Save under the same pool ID
// must not overwrite the first.
func (s *RedisStoreSuite) TestSave_Immutable() {
	ctx := context.Background()
	snapshot := makePool()
	s.Require().NoError(s.store.Save(ctx, snapshot))

	altered := *snapshot
	altered.Candidates = nil
	s.ErrorIs(s.store.Save(ctx, &altered), sentinel.ErrConflict)

	got, err := s.store.Get(ctx, snapshot.ID)
	s.Require().NoError(err)
	s.Len(got.Candidates, 2)
}

func (s *RedisStoreSuite) TestLatest() {
	ctx := context.Background()

	_, err := s.store.Latest(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)

	first := makePool()
	second := makePool()
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))

	latest, err := s.store.Latest(ctx)
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)
}
