// Package ports defines shared interfaces for the anchoring module.
package ports

import (
	"context"

	"trustplane/internal/anchor/models"
	id "trustplane/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks SettlementClient,AnchorStore

// SettlementReceipt is the settlement layer's view of a published anchor.
type SettlementReceipt struct {
	Ref    string `json:"ref"`
	Domain string `json:"domain"`
	Epoch  uint64 `json:"epoch"`
	Root   string `json:"root"` // hex
}

// SettlementClient talks to the external settlement layer. Publishing the
// same payload twice must be safe; the layer deduplicates on content.
type SettlementClient interface {
	// Publish submits an anchor payload and returns the settlement
	// reference. Transient failures are returned as-is for the caller's
	// retry loop.
	Publish(ctx context.Context, payload models.AnchorPayload) (string, error)

	// Confirm fetches the settled anchor for a domain and epoch, or
	// sentinel.ErrNotFound when nothing is anchored there.
	Confirm(ctx context.Context, domain string, epoch uint64) (*SettlementReceipt, error)
}

// AnchorStore persists certificates and publication commitments. Commitments
// are strictly epoch-ordered per domain: saving epoch e requires e-1 to be
// the latest committed epoch (or none, for e == 1), else
// sentinel.ErrOutOfOrder.
type AnchorStore interface {
	SaveCertificate(ctx context.Context, cert *models.Certificate) error
	Certificate(ctx context.Context, domain id.DomainTag, epoch id.Epoch) (*models.Certificate, error)

	SaveCommitment(ctx context.Context, commitment *models.AnchorCommitment) error
	Commitment(ctx context.Context, domain id.DomainTag, epoch id.Epoch) (*models.AnchorCommitment, error)

	// LatestEpoch returns the highest committed epoch for a domain, zero
	// when none exists.
	LatestEpoch(ctx context.Context, domain id.DomainTag) (id.Epoch, error)
}
