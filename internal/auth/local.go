package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumen-studio/lumen/internal/docstore"
)

// Local is an email+password auth backend over the document store. Sign-up
// creates the user document with the configured credit grant, so the
// ledger profile exists by the time the identity notification fires.
type Local struct {
	store         docstore.Store
	signupCredits int

	mu        sync.Mutex
	current   *Identity
	listeners map[int]func(*Identity)
	nextID    int
}

// NewLocal returns a Local backend over store. signupCredits is the free
// balance granted on account creation.
func NewLocal(store docstore.Store, signupCredits int) *Local {
	return &Local{
		store:         store,
		signupCredits: signupCredits,
		listeners:     make(map[int]func(*Identity)),
	}
}

// OnIdentityChange registers fn and immediately invokes it with the current
// identity.
func (l *Local) OnIdentityChange(fn func(*Identity)) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.listeners[id] = fn
	cur := l.current
	l.mu.Unlock()

	fn(cloneIdentity(cur))
	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}

// Current returns the current identity, nil when signed out.
func (l *Local) Current() *Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneIdentity(l.current)
}

// SignUp creates the account, grants the welcome credits, and signs in.
func (l *Local) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	if _, err := l.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &docstore.User{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Credits:      0,
		CreatedAt:    time.Now(),
	}
	if err := l.store.PutUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if l.signupCredits > 0 {
		_, err := l.store.AdjustCredits(ctx, u.UID, docstore.Transaction{
			ID:        uuid.NewString(),
			UID:       u.UID,
			Reason:    "Welcome credits",
			Amount:    l.signupCredits,
			CreatedAt: time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("grant welcome credits: %w", err)
		}
	}

	id := &Identity{UID: u.UID, Email: u.Email, EmailVerified: false}
	l.setCurrent(id)
	return cloneIdentity(id), nil
}

// SignIn verifies the password and publishes the identity.
func (l *Local) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	u, err := l.store.GetUserByEmail(ctx, email)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	id := &Identity{UID: u.UID, Email: u.Email, EmailVerified: u.EmailVerified}
	l.setCurrent(id)
	return cloneIdentity(id), nil
}

// Restore re-establishes a previously persisted identity without a password.
// Used by the CLI to resume a saved session.
func (l *Local) Restore(ctx context.Context, uid string) (*Identity, error) {
	u, err := l.store.GetUser(ctx, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	id := &Identity{UID: u.UID, Email: u.Email, EmailVerified: u.EmailVerified}
	l.setCurrent(id)
	return cloneIdentity(id), nil
}

// Reauthenticate checks the password of the current identity.
func (l *Local) Reauthenticate(ctx context.Context, password string) error {
	cur := l.Current()
	if cur == nil {
		return ErrNotSignedIn
	}
	u, err := l.store.GetUser(ctx, cur.UID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// MarkVerified flips the email-verified flag for the current identity and
// republishes it.
func (l *Local) MarkVerified(ctx context.Context) error {
	cur := l.Current()
	if cur == nil {
		return ErrNotSignedIn
	}
	if err := l.store.SetEmailVerified(ctx, cur.UID, true); err != nil {
		return err
	}
	cur.EmailVerified = true
	l.setCurrent(cur)
	return nil
}

// SignOut clears the current identity and notifies listeners.
func (l *Local) SignOut() {
	l.setCurrent(nil)
}

func (l *Local) setCurrent(id *Identity) {
	l.mu.Lock()
	l.current = cloneIdentity(id)
	fns := make([]func(*Identity), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	// Notify outside the lock; listeners may call back in.
	for _, fn := range fns {
		fn(cloneIdentity(id))
	}
}

func cloneIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}

var _ AccountService = (*Local)(nil)
