package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"trustplane/internal/trust/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
)

const (
	decisionKeyPrefix = "dgd:decision:"
	pendingSetKey     = "dgd:pending"
)

// RedisStore is a Redis-backed decision store. This is the recommended
// implementation for distributed deployments: quorum signatures accumulate
// over an unbounded real-world window and must survive process restarts.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func decisionKey(decisionID id.DecisionID) string {
	return decisionKeyPrefix + decisionID.String()
}

func (s *RedisStore) Create(ctx context.Context, decision *models.DeltaGuardDecision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	ok, err := s.client.SetNX(ctx, decisionKey(decision.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create decision: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	if decision.Verdict == models.VerdictPendingQuorum {
		if err := s.client.SAdd(ctx, pendingSetKey, decision.ID.String()).Err(); err != nil {
			return fmt.Errorf("index pending decision: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, decisionID id.DecisionID) (*models.DeltaGuardDecision, error) {
	raw, err := s.client.Get(ctx, decisionKey(decisionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get decision: %w", err)
	}
	var decision models.DeltaGuardDecision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return nil, fmt.Errorf("decode decision: %w", err)
	}
	return &decision, nil
}

// AppendSignature mutates the decision under a WATCH transaction so two
// concurrent submissions for the same decision serialize.
func (s *RedisStore) AppendSignature(ctx context.Context, decisionID id.DecisionID, sig models.QuorumSignature) (*models.QuorumState, error) {
	key := decisionKey(decisionID)
	var state *models.QuorumState

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var decision models.DeltaGuardDecision
		if err := json.Unmarshal(raw, &decision); err != nil {
			return err
		}
		if decision.Verdict != models.VerdictPendingQuorum {
			return sentinel.ErrInvalidState
		}
		if decision.Quorum.Has(sig.Signer) {
			return sentinel.ErrAlreadyUsed
		}
		decision.Quorum.Signatures = append(decision.Quorum.Signatures, sig)
		payload, err := json.Marshal(&decision)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			state = &decision.Quorum
		}
		return err
	}

	for i := 0; i < 5; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return state, nil
	}
	return nil, sentinel.ErrConflict
}

func (s *RedisStore) Resolve(ctx context.Context, decisionID id.DecisionID, verdict models.Verdict, resolvedAt time.Time) error {
	key := decisionKey(decisionID)

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var decision models.DeltaGuardDecision
		if err := json.Unmarshal(raw, &decision); err != nil {
			return err
		}
		if decision.Verdict.Terminal() {
			return sentinel.ErrInvalidState
		}
		decision.Verdict = verdict
		t := resolvedAt
		decision.ResolvedAt = &t
		payload, err := json.Marshal(&decision)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SRem(ctx, pendingSetKey, decisionID.String())
			return nil
		})
		return err
	}

	for i := 0; i < 5; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return sentinel.ErrConflict
}

func (s *RedisStore) ListByVerdict(ctx context.Context, verdict models.Verdict) ([]*models.DeltaGuardDecision, error) {
	// The pending index makes restart recovery cheap; other verdicts scan.
	if verdict == models.VerdictPendingQuorum {
		ids, err := s.client.SMembers(ctx, pendingSetKey).Result()
		if err != nil {
			return nil, fmt.Errorf("list pending decisions: %w", err)
		}
		out := make([]*models.DeltaGuardDecision, 0, len(ids))
		for _, raw := range ids {
			decisionID, err := id.ParseDecisionID(raw)
			if err != nil {
				continue
			}
			d, err := s.Get(ctx, decisionID)
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if d.Verdict == verdict {
				out = append(out, d)
			}
		}
		sortByCreation(out)
		return out, nil
	}

	var out []*models.DeltaGuardDecision
	iter := s.client.Scan(ctx, 0, decisionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var decision models.DeltaGuardDecision
		if err := json.Unmarshal(raw, &decision); err != nil {
			return nil, err
		}
		if decision.Verdict == verdict {
			out = append(out, &decision)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan decisions: %w", err)
	}
	sortByCreation(out)
	return out, nil
}

// sortByCreation restores creation order. Redis hands back SCAN and set
// order, which is arbitrary, and downstream root building depends on a
// stable listing.
func sortByCreation(out []*models.DeltaGuardDecision) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
}
