// Package ledger wraps the document store with signed credit adjustments,
// paired transaction history, and the guarded-operation protocol every
// metered call runs through.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-studio/lumen/internal/docstore"
)

// ErrProfileNotReady indicates the profile document is absent. Transient:
// just-signed-up users may not have a profile yet, callers retry later.
var ErrProfileNotReady = errors.New("profile not ready")

// ErrLedgerWriteFailed indicates a failed balance write. Never retried
// automatically; a failed debit must not be treated as applied.
var ErrLedgerWriteFailed = errors.New("ledger write failed")

// InsufficientCreditsError is an expected control-flow signal, not a fault.
// Callers route the user to the purchase flow.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Required, e.Available)
}

// Profile is the loaded ledger state for one identity.
type Profile struct {
	UID           string
	Email         string
	EmailVerified bool
	Credits       int
	Transactions  []docstore.Transaction
}

// Client performs ledger reads and signed adjustments against the store.
type Client struct {
	store docstore.Store
}

// New returns a ledger client over store.
func New(store docstore.Store) *Client {
	return &Client{store: store}
}

// Load fetches the profile for uid. Absent profiles signal ErrProfileNotReady.
func (c *Client) Load(ctx context.Context, uid string) (*Profile, error) {
	u, err := c.store.GetUser(ctx, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrProfileNotReady
	}
	if err != nil {
		return nil, err
	}
	txs, err := c.store.ListTransactions(ctx, uid)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(txs)
	return &Profile{
		UID:           u.UID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Credits:       u.Credits,
		Transactions:  txs,
	}, nil
}

// Adjust atomically increments the stored balance by amount (positive or
// negative) and appends one transaction, then returns the refreshed profile.
// Store failures are wrapped in ErrLedgerWriteFailed and not retried.
func (c *Client) Adjust(ctx context.Context, uid string, amount int, reason string) (*Profile, error) {
	tx := docstore.Transaction{
		ID:        uuid.NewString(),
		UID:       uid,
		Reason:    reason,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	if _, err := c.store.AdjustCredits(ctx, uid, tx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerWriteFailed, err)
	}
	return c.Load(ctx, uid)
}

// Purchase applies a credit pack as a positive adjustment.
func (c *Client) Purchase(ctx context.Context, uid, pack string, credits int) (*Profile, error) {
	return c.Adjust(ctx, uid, credits, "Purchase: "+pack)
}

// CanAfford reports whether the profile covers cost.
func CanAfford(p *Profile, cost int) bool {
	return p != nil && p.Credits >= cost
}

// Guard runs fn under the debit-before-attempt, refund-on-failure protocol:
// pre-check affordability, debit cost, run fn, and on failure issue a
// compensating credit. The refund is best-effort; if it also fails the two
// errors are joined and the user is left under-credited (known gap, handled
// by manual support). Returns the freshest profile it has alongside any
// error so callers can keep their balance display in sync.
func (c *Client) Guard(ctx context.Context, p *Profile, cost int, reason string, fn func() error) (*Profile, error) {
	if !CanAfford(p, cost) {
		available := 0
		if p != nil {
			available = p.Credits
		}
		return p, &InsufficientCreditsError{Required: cost, Available: available}
	}
	debited, err := c.Adjust(ctx, p.UID, -cost, reason)
	if err != nil {
		return p, err
	}
	if err := fn(); err != nil {
		refunded, refundErr := c.Adjust(ctx, p.UID, cost, "Refund: "+reason)
		if refundErr != nil {
			return debited, errors.Join(err, fmt.Errorf("refund: %w", refundErr))
		}
		return refunded, err
	}
	return debited, nil
}

func sortNewestFirst(txs []docstore.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
