package certificate

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustplane/internal/anchor/models"
	govmodels "trustplane/internal/governance/models"
	"trustplane/internal/platform/config"
	keystore "trustplane/internal/trust/store/keys"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
)

// =============================================================================
// Certificate Service Test Suite
// =============================================================================
// Covers collection sessions, member-only signing, threshold issuance, the
// collection window timeout, and the pure certificate verification used by
// outside verifiers.

type CertificateSuite struct {
	suite.Suite
	keys    *keystore.InMemoryDirectory
	service *Service
	now     time.Time

	chamber    *govmodels.Chamber
	memberKeys map[id.ActorID]ed25519.PrivateKey
	publicKeys map[id.ActorID]ed25519.PublicKey
}

func TestCertificateSuite(t *testing.T) {
	suite.Run(t, new(CertificateSuite))
}

func (s *CertificateSuite) SetupTest() {
	s.keys = keystore.New()
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.memberKeys = make(map[id.ActorID]ed25519.PrivateKey)
	s.publicKeys = make(map[id.ActorID]ed25519.PublicKey)

	members := make([]govmodels.Candidate, 0, 3)
	for i := 0; i < 3; i++ {
		actorID := id.NewActorID()
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		s.Require().NoError(err)
		s.Require().NoError(s.keys.Register(context.Background(), actorID, pub))
		s.memberKeys[actorID] = priv
		s.publicKeys[actorID] = pub
		members = append(members, govmodels.Candidate{ActorID: actorID, Region: "eu-west", Org: "acme", Trust: 8000})
	}
	s.chamber = &govmodels.Chamber{
		ID:         id.NewChamberID(),
		PoolID:     id.NewPoolID(),
		Seed:       []byte("seed"),
		Size:       3,
		RegionCap:  3,
		Members:    members,
		SelectedAt: s.now,
	}

	var err error
	s.service, err = New(s.keys,
		config.CertificatePolicy{Threshold: 2, CollectTimeout: 50 * time.Millisecond},
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

func (s *CertificateSuite) root(epoch id.Epoch) *models.RootRecord {
	return &models.RootRecord{
		Domain:  id.DomainTrustDeltas,
		Epoch:   epoch,
		Root:    []byte("root-bytes"),
		Leaves:  4,
		BuiltAt: s.now,
	}
}

func (s *CertificateSuite) sign(root *models.RootRecord, signer id.ActorID) []byte {
	payload, err := SigningBytes(root.Domain, root.Epoch, root.Root, s.chamber.ID)
	s.Require().NoError(err)
	return ed25519.Sign(s.memberKeys[signer], payload)
}

func (s *CertificateSuite) member(i int) id.ActorID {
	return s.chamber.Members[i].ActorID
}

// =============================================================================
// Collection Sessions
// =============================================================================

func (s *CertificateSuite) TestOpen() {
	ctx := context.Background()

	s.Run("opens one collection per domain and epoch", func() {
		s.Require().NoError(s.service.Open(ctx, s.root(1), s.chamber))
		err := s.service.Open(ctx, s.root(1), s.chamber)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects a chamber without members", func() {
		err := s.service.Open(ctx, s.root(2), &govmodels.Chamber{ID: id.NewChamberID()})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a threshold larger than the chamber", func() {
		svc, err := New(s.keys, config.CertificatePolicy{Threshold: 5, CollectTimeout: time.Second})
		s.Require().NoError(err)
		err = svc.Open(ctx, s.root(1), s.chamber)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Signature Submission
// =============================================================================

func (s *CertificateSuite) TestSubmit() {
	ctx := context.Background()
	root := s.root(1)
	s.Require().NoError(s.service.Open(ctx, root, s.chamber))

	s.Run("no collection open", func() {
		_, err := s.service.Submit(ctx, id.DomainTrustDeltas, 9, s.member(0), s.sign(root, s.member(0)))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("non-members cannot sign", func() {
		outsider := id.NewActorID()
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		s.Require().NoError(err)
		s.Require().NoError(s.keys.Register(ctx, outsider, pub))

		_, err = s.service.Submit(ctx, root.Domain, root.Epoch, outsider, []byte("sig"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("signer without a published key", func() {
		_, err := s.service.Submit(ctx, root.Domain, root.Epoch, id.NewActorID(), []byte("sig"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("forged signature is rejected", func() {
		forged := ed25519.Sign(s.memberKeys[s.member(1)], []byte("wrong payload"))
		_, err := s.service.Submit(ctx, root.Domain, root.Epoch, s.member(0), forged)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("threshold issues the certificate", func() {
		cert, err := s.service.Submit(ctx, root.Domain, root.Epoch, s.member(0), s.sign(root, s.member(0)))
		s.Require().NoError(err)
		s.Nil(cert, "below threshold")

		cert, err = s.service.Submit(ctx, root.Domain, root.Epoch, s.member(1), s.sign(root, s.member(1)))
		s.Require().NoError(err)
		s.Require().NotNil(cert)
		s.Equal(s.chamber.ID, cert.ChamberID)
		s.Len(cert.Signatures, 2)
		s.False(cert.IssuedAt.IsZero())
	})

	s.Run("issued certificates accept no more signatures", func() {
		_, err := s.service.Submit(ctx, root.Domain, root.Epoch, s.member(2), s.sign(root, s.member(2)))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *CertificateSuite) TestSubmit_DuplicateSigner() {
	ctx := context.Background()
	root := s.root(1)
	s.Require().NoError(s.service.Open(ctx, root, s.chamber))

	_, err := s.service.Submit(ctx, root.Domain, root.Epoch, s.member(0), s.sign(root, s.member(0)))
	s.Require().NoError(err)
	_, err = s.service.Submit(ctx, root.Domain, root.Epoch, s.member(0), s.sign(root, s.member(0)))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

// =============================================================================
// Waiting and Timeouts
// =============================================================================

func (s *CertificateSuite) TestWait() {
	ctx := context.Background()

	s.Run("returns the certificate once issued", func() {
		root := s.root(1)
		s.Require().NoError(s.service.Open(ctx, root, s.chamber))
		for i := 0; i < 2; i++ {
			_, err := s.service.Submit(ctx, root.Domain, root.Epoch, s.member(i), s.sign(root, s.member(i)))
			s.Require().NoError(err)
		}

		cert, err := s.service.Wait(ctx, root.Domain, root.Epoch)
		s.Require().NoError(err)
		s.Len(cert.Signatures, 2)
	})

	s.Run("collection window closes with a timeout", func() {
		root := s.root(2)
		s.Require().NoError(s.service.Open(ctx, root, s.chamber))
		_, err := s.service.Submit(ctx, root.Domain, root.Epoch, s.member(0), s.sign(root, s.member(0)))
		s.Require().NoError(err)

		_, err = s.service.Wait(ctx, root.Domain, root.Epoch)
		s.True(dErrors.HasCode(err, dErrors.CodeCertificateTimeout))
		s.Contains(err.Error(), "1 of 2")
	})

	s.Run("an issued certificate beats an already-expired window", func() {
		svc, err := New(s.keys,
			config.CertificatePolicy{Threshold: 2, CollectTimeout: 0},
			WithClock(func() time.Time { return s.now }),
		)
		s.Require().NoError(err)

		for epoch := id.Epoch(10); epoch < 30; epoch++ {
			root := s.root(epoch)
			s.Require().NoError(svc.Open(ctx, root, s.chamber))
			for i := 0; i < 2; i++ {
				_, err := svc.Submit(ctx, root.Domain, root.Epoch, s.member(i), s.sign(root, s.member(i)))
				s.Require().NoError(err)
			}

			cert, err := svc.Wait(ctx, root.Domain, root.Epoch)
			s.Require().NoError(err, "an issued certificate must never report a timeout")
			s.Len(cert.Signatures, 2)
		}
	})

	s.Run("a timed-out collection is torn down", func() {
		_, err := s.service.Wait(ctx, id.DomainTrustDeltas, 2)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("no collection open", func() {
		_, err := s.service.Wait(ctx, id.DomainTrustDeltas, 42)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Pure Verification
// =============================================================================

func (s *CertificateSuite) issue(epoch id.Epoch) *models.Certificate {
	ctx := context.Background()
	root := s.root(epoch)
	s.Require().NoError(s.service.Open(ctx, root, s.chamber))

	var cert *models.Certificate
	var err error
	for i := 0; i < 2; i++ {
		cert, err = s.service.Submit(ctx, root.Domain, root.Epoch, s.member(i), s.sign(root, s.member(i)))
		s.Require().NoError(err)
	}
	s.Require().NotNil(cert)
	return cert
}

func (s *CertificateSuite) TestVerify() {
	cert := s.issue(1)

	s.Run("an issued certificate verifies", func() {
		s.NoError(Verify(cert, s.chamber, s.publicKeys))
	})

	s.Run("a certificate for another chamber is unverifiable", func() {
		other := &govmodels.Chamber{ID: id.NewChamberID(), Members: s.chamber.Members}
		err := Verify(cert, other, s.publicKeys)
		s.True(dErrors.HasCode(err, dErrors.CodeUnverifiable))
	})

	s.Run("missing keys drop below the threshold", func() {
		err := Verify(cert, s.chamber, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnverifiable))
	})

	s.Run("a tampered root invalidates every signature", func() {
		tampered := *cert
		tampered.Root = []byte("tampered")
		err := Verify(&tampered, s.chamber, s.publicKeys)
		s.True(dErrors.HasCode(err, dErrors.CodeUnverifiable))
	})

	s.Run("duplicated signatures count once", func() {
		duped := *cert
		duped.Signatures = []models.CertificateSignature{cert.Signatures[0], cert.Signatures[0]}
		err := Verify(&duped, s.chamber, s.publicKeys)
		s.True(dErrors.HasCode(err, dErrors.CodeUnverifiable))
	})
}
