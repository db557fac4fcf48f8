// Package credentials implements account registration and secret verification.
package credentials

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/propchain/registry_gateway/internal/domain/identity"
	"github.com/propchain/registry_gateway/internal/errors"
	"github.com/propchain/registry_gateway/internal/storage"
)

// bcryptCost matches the work factor the registry has always used for stored
// secrets. bcrypt is deliberately slow and salted; a fast general-purpose hash
// is not an acceptable substitute.
const bcryptCost = 10

// Service registers identities and verifies their secrets against the store.
type Service struct {
	store storage.IdentityStore
	log   zerolog.Logger
}

// New creates a credentials service backed by the given store.
func New(store storage.IdentityStore, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Register creates a new identity. Fails with a conflict error when the
// username is taken. Hashing runs before the store insert so the slow bcrypt
// work never executes while the store lock is held; uniqueness is still
// enforced atomically by the store itself.
func (s *Service) Register(ctx context.Context, username, secret string) (identity.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return identity.Identity{}, errors.Validation("username is required")
	}
	if secret == "" {
		return identity.Identity{}, errors.Validation("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return identity.Identity{}, errors.Internal("hash password", err)
	}

	ident, err := s.store.CreateIdentity(ctx, identity.Identity{
		ID:         uuid.New().String(),
		Username:   username,
		SecretHash: string(hash),
	})
	if err != nil {
		return identity.Identity{}, err
	}

	s.log.Info().Str("username", ident.Username).Msg("identity registered")
	return ident, nil
}

// Verify reports whether the supplied secret matches the stored hash. Fails
// with a not-found error when no such identity exists. bcrypt's comparison is
// constant-time on the derived key.
func (s *Service) Verify(ctx context.Context, username, secret string) (bool, error) {
	ident, err := s.store.GetIdentity(ctx, username)
	if err != nil {
		return false, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(ident.SecretHash), []byte(secret)); err != nil {
		return false, nil
	}
	return true, nil
}
