package anchor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"trustplane/internal/anchor/models"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
)

// PostgresStore persists certificates and anchor commitments.
//
// Expected schema:
//
//	CREATE TABLE anchor_certificates (
//	    domain     TEXT NOT NULL,
//	    epoch      BIGINT NOT NULL,
//	    payload    JSONB NOT NULL,
//	    PRIMARY KEY (domain, epoch)
//	);
//
//	CREATE TABLE anchor_commitments (
//	    domain         TEXT NOT NULL,
//	    epoch          BIGINT NOT NULL,
//	    root           BYTEA NOT NULL,
//	    payload_digest BYTEA NOT NULL,
//	    settlement_ref TEXT NOT NULL,
//	    published_at   TIMESTAMPTZ NOT NULL,
//	    attempts       INT NOT NULL,
//	    PRIMARY KEY (domain, epoch)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveCertificate(ctx context.Context, cert *models.Certificate) error {
	payload, err := json.Marshal(cert)
	if err != nil {
		return fmt.Errorf("encode certificate: %w", err)
	}
	query := `
		INSERT INTO anchor_certificates (domain, epoch, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (domain, epoch) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, cert.Domain.String(), uint64(cert.Epoch), payload)
	if err != nil {
		return fmt.Errorf("save certificate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Certificate(ctx context.Context, domain id.DomainTag, epoch id.Epoch) (*models.Certificate, error) {
	query := `SELECT payload FROM anchor_certificates WHERE domain = $1 AND epoch = $2`
	var raw []byte
	if err := s.db.QueryRowContext(ctx, query, domain.String(), uint64(epoch)).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	var cert models.Certificate
	if err := json.Unmarshal(raw, &cert); err != nil {
		return nil, fmt.Errorf("decode certificate: %w", err)
	}
	return &cert, nil
}

// SaveCommitment enforces epoch monotonicity in the insert itself: the row
// only lands when the previous epoch is the current maximum.
func (s *PostgresStore) SaveCommitment(ctx context.Context, commitment *models.AnchorCommitment) error {
	query := `
		INSERT INTO anchor_commitments (domain, epoch, root, payload_digest, settlement_ref, published_at, attempts)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE $2 = COALESCE((SELECT MAX(epoch) FROM anchor_commitments WHERE domain = $1), 0) + 1
	`
	res, err := s.db.ExecContext(ctx, query,
		commitment.Domain.String(),
		uint64(commitment.Epoch),
		commitment.Root,
		commitment.PayloadDigest,
		commitment.SettlementRef,
		commitment.PublishedAt,
		commitment.Attempts,
	)
	if err != nil {
		return fmt.Errorf("save commitment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrOutOfOrder
	}
	return nil
}

func (s *PostgresStore) Commitment(ctx context.Context, domain id.DomainTag, epoch id.Epoch) (*models.AnchorCommitment, error) {
	query := `
		SELECT root, payload_digest, settlement_ref, published_at, attempts
		FROM anchor_commitments
		WHERE domain = $1 AND epoch = $2
	`
	c := models.AnchorCommitment{Domain: domain, Epoch: epoch}
	err := s.db.QueryRowContext(ctx, query, domain.String(), uint64(epoch)).
		Scan(&c.Root, &c.PayloadDigest, &c.SettlementRef, &c.PublishedAt, &c.Attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get commitment: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) LatestEpoch(ctx context.Context, domain id.DomainTag) (id.Epoch, error) {
	query := `SELECT COALESCE(MAX(epoch), 0) FROM anchor_commitments WHERE domain = $1`
	var epoch uint64
	if err := s.db.QueryRowContext(ctx, query, domain.String()).Scan(&epoch); err != nil {
		return 0, fmt.Errorf("latest epoch: %w", err)
	}
	return id.Epoch(epoch), nil
}
