package identity

import (
	"context"
	"errors"

	"github.com/custodia/custodia/internal/ledger"
)

// ErrInvalidCredentials is returned when a password does not match a
// verified identity.
var ErrInvalidCredentials = errors.New("invalid credentials")

// DefaultName is the display name given to auto-registered accounts.
const DefaultName = "Valued Customer"

// Session is the outcome of a successful login.
type Session struct {
	Account ledger.Account
	Wallet  ledger.Wallet
}

// Provider authenticates a credential pair into a session.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (Session, error)
}

// Resolver picks the provider for a credential: fixed snapshots registered
// in the directory first, the store-backed provider for everyone else.
type Resolver struct {
	directory *Directory
	fallback  Provider
}

// NewResolver builds a resolver. A nil directory means no fixed identities.
func NewResolver(directory *Directory, fallback Provider) *Resolver {
	if directory == nil {
		directory = NewDirectory()
	}
	return &Resolver{directory: directory, fallback: fallback}
}

// Resolve maps the credential pair to a session.
func (r *Resolver) Resolve(ctx context.Context, email, password string) (Session, error) {
	if normalizeEmail(email) == "" {
		return Session{}, ErrInvalidCredentials
	}
	if snap, ok := r.directory.ByEmail(email); ok {
		return snap.Authenticate(ctx, email, password)
	}
	return r.fallback.Authenticate(ctx, email, password)
}
