package models

import (
	"encoding/hex"
	"time"

	id "trustplane/pkg/domain"
)

// RootRecord is an epoch's Merkle root over the canonical records of one
// domain. The root, not the records, is what leaves the system.
type RootRecord struct {
	Domain  id.DomainTag `json:"domain"`
	Epoch   id.Epoch     `json:"epoch"`
	Root    []byte       `json:"root"`
	Leaves  int          `json:"leaves"`
	BuiltAt time.Time    `json:"built_at"`
}

// CertificateSignature is one chamber member's signature over a root.
type CertificateSignature struct {
	Signer    id.ActorID `json:"signer"`
	Signature []byte     `json:"signature"`
	SignedAt  time.Time  `json:"signed_at"`
}

// Certificate is a t-of-n attestation by a selected chamber that a root is
// the agreed root for its domain and epoch.
type Certificate struct {
	ChamberID  id.ChamberID           `json:"chamber_id"`
	Domain     id.DomainTag           `json:"domain"`
	Epoch      id.Epoch               `json:"epoch"`
	Root       []byte                 `json:"root"`
	Threshold  int                    `json:"threshold"`
	Signatures []CertificateSignature `json:"signatures"`
	IssuedAt   time.Time              `json:"issued_at"`
}

// Has reports whether the signer already contributed.
func (c *Certificate) Has(signer id.ActorID) bool {
	for _, s := range c.Signatures {
		if s.Signer == signer {
			return true
		}
	}
	return false
}

// AnchorPayload is the canonical content published to the settlement layer.
// Byte-identical across publish retries for the same (domain, epoch).
type AnchorPayload struct {
	Domain    string `json:"domain"`
	Epoch     uint64 `json:"epoch"`
	Root      string `json:"root"` // hex
	ChamberID string `json:"chamber_id"`
	IssuedAt  string `json:"issued_at"` // RFC 3339 UTC
}

// PayloadFor derives the anchor payload from an issued certificate.
func PayloadFor(cert *Certificate) AnchorPayload {
	return AnchorPayload{
		Domain:    cert.Domain.String(),
		Epoch:     uint64(cert.Epoch),
		Root:      hex.EncodeToString(cert.Root),
		ChamberID: cert.ChamberID.String(),
		IssuedAt:  cert.IssuedAt.UTC().Format(time.RFC3339),
	}
}

// AnchorCommitment records a successfully published anchor.
type AnchorCommitment struct {
	Domain        id.DomainTag `json:"domain"`
	Epoch         id.Epoch     `json:"epoch"`
	Root          []byte       `json:"root"`
	PayloadDigest []byte       `json:"payload_digest"`
	SettlementRef string       `json:"settlement_ref"`
	PublishedAt   time.Time    `json:"published_at"`
	Attempts      int          `json:"attempts"`
}
