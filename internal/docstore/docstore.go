// Package docstore is the document store boundary: user documents with
// atomic credit increments, paired transaction appends, and per-user
// gallery documents.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a missing document.
var ErrNotFound = errors.New("document not found")

// User is the users/{uid} document.
type User struct {
	UID           string
	Email         string
	PasswordHash  string
	EmailVerified bool
	Credits       int
	CreatedAt     time.Time
}

// Transaction is one signed credit movement, appended atomically with the
// balance change that caused it.
type Transaction struct {
	ID        string
	UID       string
	Reason    string
	Amount    int
	CreatedAt time.Time
}

// GalleryEntry is the users/{uid}/gallery/{id} document. Entries are durable
// and mutated only by upscale-in-place.
type GalleryEntry struct {
	ID        string
	UID       string
	URL       string
	Prompt    string
	Upscaled  bool
	CreatedAt time.Time
}

// Store is the document store contract. Implementations must make
// AdjustCredits atomic: the balance increment and the transaction append
// happen together or not at all.
type Store interface {
	GetUser(ctx context.Context, uid string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	PutUser(ctx context.Context, u *User) error
	SetEmailVerified(ctx context.Context, uid string, verified bool) error

	// AdjustCredits increments the stored balance by tx.Amount and appends
	// tx in one atomic update. Returns the new balance.
	AdjustCredits(ctx context.Context, uid string, tx Transaction) (int, error)
	// ListTransactions returns transactions in storage arrival order; the
	// ledger layer owns display ordering.
	ListTransactions(ctx context.Context, uid string) ([]Transaction, error)

	PutGalleryEntry(ctx context.Context, e *GalleryEntry) error
	UpdateGalleryEntry(ctx context.Context, uid, id, url string, upscaled bool) error
	// ListGalleryEntries returns entries newest first.
	ListGalleryEntries(ctx context.Context, uid string) ([]GalleryEntry, error)

	Close() error
}
