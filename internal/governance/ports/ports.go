// Package ports defines shared interfaces for the governance module.
package ports

import (
	"context"

	"trustplane/internal/governance/models"
	id "trustplane/pkg/domain"
)

// PoolStore persists eligibility pool snapshots. Snapshots are immutable
// once saved.
type PoolStore interface {
	// Save stores a new snapshot. The pool id must be unused.
	Save(ctx context.Context, pool *models.EligibilityPool) error

	// Get retrieves a snapshot, or sentinel.ErrNotFound.
	Get(ctx context.Context, poolID id.PoolID) (*models.EligibilityPool, error)

	// Latest retrieves the most recently saved snapshot, or
	// sentinel.ErrNotFound when none exists.
	Latest(ctx context.Context) (*models.EligibilityPool, error)
}

// ChamberStore persists selected chambers.
type ChamberStore interface {
	// Save stores a new chamber. The chamber id must be unused.
	Save(ctx context.Context, chamber *models.Chamber) error

	// Get retrieves a chamber, or sentinel.ErrNotFound.
	Get(ctx context.Context, chamberID id.ChamberID) (*models.Chamber, error)

	// Latest retrieves the most recently selected chamber, or
	// sentinel.ErrNotFound when none exists.
	Latest(ctx context.Context) (*models.Chamber, error)
}
