// Package session bridges identity changes into application state: a
// verified sign-in hydrates the ledger profile, the gallery, and a fresh
// edit session; sign-out or an unverified identity tears them down.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/lumen-studio/lumen/internal/auth"
	"github.com/lumen-studio/lumen/internal/config"
	"github.com/lumen-studio/lumen/internal/editor"
	"github.com/lumen-studio/lumen/internal/gallery"
	"github.com/lumen-studio/lumen/internal/gateway"
	"github.com/lumen-studio/lumen/internal/ledger"
)

// Bridge owns the per-identity application state and keeps it in lockstep
// with the auth service.
type Bridge struct {
	ledger  *ledger.Client
	gallery *gallery.Manager
	gw      gateway.Service
	costs   config.Costs

	mu       sync.Mutex
	identity *auth.Identity
	profile  *ledger.Profile
	editor   *editor.Session
	loading  bool

	unsubscribe func()
}

// New wires a bridge to svc and immediately syncs to the current identity.
func New(svc auth.Service, lc *ledger.Client, gm *gallery.Manager, gw gateway.Service, costs config.Costs) *Bridge {
	b := &Bridge{
		ledger:  lc,
		gallery: gm,
		gw:      gw,
		costs:   costs,
	}
	b.unsubscribe = svc.OnIdentityChange(func(id *auth.Identity) {
		b.onIdentity(context.Background(), id)
	})
	return b
}

// Identity returns the identity the bridge last synced to, nil when
// signed out.
func (b *Bridge) Identity() *auth.Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.identity
}

// Profile returns the hydrated ledger profile, nil while signed out,
// unverified, or still loading.
func (b *Bridge) Profile() *ledger.Profile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profile
}

// Editor returns the live edit session, nil when none.
func (b *Bridge) Editor() *editor.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editor
}

// Loading reports whether a verified identity exists but its profile
// document has not appeared yet.
func (b *Bridge) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Refresh re-reads the profile for the current identity and pushes it into
// the edit session. Resolves the loading state once the profile document
// lands.
func (b *Bridge) Refresh(ctx context.Context) error {
	b.mu.Lock()
	id := b.identity
	b.mu.Unlock()
	if id == nil || !id.EmailVerified {
		return auth.ErrNotSignedIn
	}

	p, err := b.ledger.Load(ctx, id.UID)
	if errors.Is(err, ledger.ErrProfileNotReady) {
		b.mu.Lock()
		b.loading = true
		b.mu.Unlock()
		return err
	}
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.profile = p
	b.loading = false
	ed := b.editor
	b.mu.Unlock()
	if ed != nil {
		ed.SetProfile(p)
	}
	return nil
}

// Close detaches from the auth service and tears down any live state.
func (b *Bridge) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.teardown()
}

func (b *Bridge) onIdentity(ctx context.Context, id *auth.Identity) {
	if id == nil || !id.EmailVerified {
		b.teardown()
		b.mu.Lock()
		b.identity = id
		b.mu.Unlock()
		return
	}

	// Verified sign-in: hydrate profile and gallery, open an edit session.
	var (
		profile *ledger.Profile
		loading bool
	)
	p, err := b.ledger.Load(ctx, id.UID)
	switch {
	case errors.Is(err, ledger.ErrProfileNotReady):
		loading = true
	case err == nil:
		profile = p
	}
	// Other load errors leave profile nil; Refresh retries.

	_ = b.gallery.LoadFor(ctx, id.UID)

	b.mu.Lock()
	if b.editor != nil {
		b.editor.Close()
	}
	b.identity = id
	b.profile = profile
	b.loading = loading
	b.editor = editor.NewSession(id.UID, profile, b.ledger, b.gw, b.costs)
	b.mu.Unlock()
}

func (b *Bridge) teardown() {
	b.mu.Lock()
	ed := b.editor
	b.identity = nil
	b.profile = nil
	b.editor = nil
	b.loading = false
	b.mu.Unlock()

	if ed != nil {
		ed.Close()
	}
	b.gallery.Clear()
}
