package keys

import (
	"context"
	"crypto/ed25519"
	"sync"

	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/sentinel"
)

// InMemoryDirectory maps actors to their published Ed25519 keys.
// Enrollment happens through the operator surface; lookups are read-heavy.
type InMemoryDirectory struct {
	mu   sync.RWMutex
	keys map[id.ActorID]ed25519.PublicKey
}

func New() *InMemoryDirectory {
	return &InMemoryDirectory{keys: make(map[id.ActorID]ed25519.PublicKey)}
}

func (d *InMemoryDirectory) Register(_ context.Context, actorID id.ActorID, key ed25519.PublicKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[actorID] = append(ed25519.PublicKey(nil), key...)
	return nil
}

func (d *InMemoryDirectory) PublicKey(_ context.Context, actorID id.ActorID) (ed25519.PublicKey, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	key, ok := d.keys[actorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append(ed25519.PublicKey(nil), key...), nil
}
