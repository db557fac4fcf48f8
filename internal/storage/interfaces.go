// Package storage declares the persistence interfaces for gateway-owned state.
package storage

import (
	"context"

	"github.com/propchain/registry_gateway/internal/domain/identity"
)

// IdentityStore persists registered identities. CreateIdentity must perform its
// existence check and insert as a single atomic unit so two concurrent
// registrations of the same username cannot both succeed.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, ident identity.Identity) (identity.Identity, error)
	GetIdentity(ctx context.Context, username string) (identity.Identity, error)
}
