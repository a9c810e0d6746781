package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"trustplane/internal/governance/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
)

const (
	poolKeyPrefix = "gov:pool:"
	latestPoolKey = "gov:pool:latest"
)

// RedisStore is a Redis-backed pool snapshot store for distributed
// deployments: every instance must select against the same snapshot.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func poolKey(poolID id.PoolID) string {
	return poolKeyPrefix + poolID.String()
}

func (s *RedisStore) Save(ctx context.Context, pool *models.EligibilityPool) error {
	payload, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}
	ok, err := s.client.SetNX(ctx, poolKey(pool.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	if err := s.client.Set(ctx, latestPoolKey, pool.ID.String(), 0).Err(); err != nil {
		return fmt.Errorf("index latest pool: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, poolID id.PoolID) (*models.EligibilityPool, error) {
	raw, err := s.client.Get(ctx, poolKey(poolID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pool: %w", err)
	}
	var pool models.EligibilityPool
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, fmt.Errorf("decode pool: %w", err)
	}
	return &pool, nil
}

func (s *RedisStore) Latest(ctx context.Context) (*models.EligibilityPool, error) {
	raw, err := s.client.Get(ctx, latestPoolKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest pool pointer: %w", err)
	}
	poolID, err := id.ParsePoolID(raw)
	if err != nil {
		return nil, fmt.Errorf("latest pool pointer: %w", err)
	}
	return s.Get(ctx, poolID)
}
