package actor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trustplane/internal/trust/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
)

// PostgresStore persists actors in PostgreSQL. This store is pure I/O; cap
// derivation and clamping belong in the services.
//
// Expected schema:
//
//	CREATE TABLE actors (
//	    id             UUID PRIMARY KEY,
//	    region         TEXT NOT NULL,
//	    org            TEXT NOT NULL,
//	    kind           TEXT NOT NULL,
//	    human_trust    BIGINT NOT NULL,
//	    machine_trust  BIGINT NOT NULL,
//	    recused        BOOLEAN NOT NULL DEFAULT FALSE,
//	    eligible       BOOLEAN NOT NULL DEFAULT TRUE,
//	    last_active_at TIMESTAMPTZ NOT NULL,
//	    version        BIGINT NOT NULL DEFAULT 0
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, actorID id.ActorID) (*models.Actor, error) {
	query := `
		SELECT id, region, org, kind, human_trust, machine_trust, recused, eligible, last_active_at, version
		FROM actors
		WHERE id = $1
	`
	actor, err := scanActor(s.db.QueryRowContext(ctx, query, actorID.UUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get actor: %w", err)
	}
	return actor, nil
}

func (s *PostgresStore) Put(ctx context.Context, actor *models.Actor) error {
	query := `
		INSERT INTO actors (id, region, org, kind, human_trust, machine_trust, recused, eligible, last_active_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			region = EXCLUDED.region,
			org = EXCLUDED.org,
			kind = EXCLUDED.kind,
			human_trust = EXCLUDED.human_trust,
			machine_trust = EXCLUDED.machine_trust,
			recused = EXCLUDED.recused,
			eligible = EXCLUDED.eligible,
			last_active_at = EXCLUDED.last_active_at,
			version = EXCLUDED.version
	`
	_, err := s.db.ExecContext(ctx, query,
		actor.ID.UUID,
		string(actor.Region),
		string(actor.Org),
		string(actor.Kind),
		int64(actor.HumanTrust),
		int64(actor.MachineTrust),
		actor.Recused,
		actor.Eligible,
		actor.LastActiveAt,
		actor.Version,
	)
	if err != nil {
		return fmt.Errorf("put actor: %w", err)
	}
	return nil
}

// CompareAndCommit is the single-writer discipline: the UPDATE names the
// version it read, so a concurrent commit makes this one affect zero rows.
func (s *PostgresStore) CompareAndCommit(ctx context.Context, actorID id.ActorID, expectedVersion uint64, next id.TrustValue, now time.Time) (*models.Actor, error) {
	query := `
		UPDATE actors
		SET machine_trust = $3, version = version + 1, last_active_at = $4
		WHERE id = $1 AND version = $2
		RETURNING id, region, org, kind, human_trust, machine_trust, recused, eligible, last_active_at, version
	`
	actor, err := scanActor(s.db.QueryRowContext(ctx, query, actorID.UUID, expectedVersion, int64(next), now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either missing or version moved; disambiguate for the caller.
			if _, getErr := s.Get(ctx, actorID); errors.Is(getErr, sentinel.ErrNotFound) {
				return nil, sentinel.ErrNotFound
			}
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("compare and commit actor: %w", err)
	}
	return actor, nil
}

func (s *PostgresStore) HumanTrustStats(ctx context.Context) (models.PopulationStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(human_trust), 0), COALESCE(STDDEV_POP(human_trust), 0)
		FROM actors
		WHERE kind = 'human'
	`
	var count int
	var mean, std float64
	if err := s.db.QueryRowContext(ctx, query).Scan(&count, &mean, &std); err != nil {
		return models.PopulationStats{}, fmt.Errorf("human trust stats: %w", err)
	}
	// Stored as fixed-point units; statistics are reported on the [0,1] scale.
	return models.PopulationStats{Count: count, Mean: mean / 10000, Std: std / 10000}, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Actor, error) {
	query := `
		SELECT id, region, org, kind, human_trust, machine_trust, recused, eligible, last_active_at, version
		FROM actors
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list actors: %w", err)
	}
	defer rows.Close()

	var out []*models.Actor
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("list actors: %w", err)
		}
		out = append(out, actor)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActor(row rowScanner) (*models.Actor, error) {
	var (
		actor        models.Actor
		region, org  string
		kind         string
		human, machi int64
	)
	if err := row.Scan(&actor.ID.UUID, &region, &org, &kind, &human, &machi,
		&actor.Recused, &actor.Eligible, &actor.LastActiveAt, &actor.Version); err != nil {
		return nil, err
	}
	actor.Region = id.Region(region)
	actor.Org = id.OrgID(org)
	actor.Kind = models.ActorKind(kind)
	actor.HumanTrust = id.TrustValue(human)
	actor.MachineTrust = id.TrustValue(machi)
	return &actor, nil
}
