// Package auth is the identity boundary: callers subscribe to identity
// changes and gate session state on a verified authenticated identity.
package auth

import (
	"context"
	"errors"
)

// ErrInvalidCredentials covers unknown email and wrong password alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken indicates a sign-up against an existing account.
var ErrEmailTaken = errors.New("email already registered")

// ErrNotSignedIn indicates an operation that needs a current identity.
var ErrNotSignedIn = errors.New("not signed in")

// Identity is an authenticated user as seen by the rest of the system.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
}

// Service is the auth contract consumed by the session bridge.
type Service interface {
	// OnIdentityChange registers fn and immediately invokes it with the
	// current identity (nil when signed out). Returns an unsubscribe func.
	OnIdentityChange(fn func(*Identity)) (unsubscribe func())
	// Current returns the current identity, nil when signed out.
	Current() *Identity
	// SignOut clears the current identity and notifies listeners.
	SignOut()
}

// Account operations beyond the Service contract, implemented by the local
// backend and exercised by the CLI.
type AccountService interface {
	Service
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	Reauthenticate(ctx context.Context, password string) error
	MarkVerified(ctx context.Context) error
}
