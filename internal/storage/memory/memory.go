package memory

import (
	"context"
	"sync"
	"time"

	"github.com/propchain/registry_gateway/internal/domain/identity"
	"github.com/propchain/registry_gateway/internal/errors"
	"github.com/propchain/registry_gateway/internal/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use. Identities live only for the process lifetime and are
// lost on restart; a persistent backend can be swapped in behind the same
// interface without touching callers.
type Store struct {
	mu         sync.Mutex
	identities map[string]identity.Identity
}

var _ storage.IdentityStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		identities: make(map[string]identity.Identity),
	}
}

// CreateIdentity inserts a new identity. The uniqueness check and the insert
// happen under one lock section; callers never observe a partial state.
func (s *Store) CreateIdentity(_ context.Context, ident identity.Identity) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.identities[ident.Username]; exists {
		return identity.Identity{}, errors.Conflict("username already exists").WithDetails("username", ident.Username)
	}

	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}

	s.identities[ident.Username] = ident
	return ident, nil
}

// GetIdentity looks up an identity by username.
func (s *Store) GetIdentity(_ context.Context, username string) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.identities[username]
	if !ok {
		return identity.Identity{}, errors.NotFound("user not found").WithDetails("username", username)
	}
	return ident, nil
}
