package docstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-memory Store for tests and the memory backend.
type Memory struct {
	mu           sync.Mutex
	users        map[string]User
	byEmail      map[string]string
	transactions map[string][]Transaction
	gallery      map[string][]GalleryEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:        make(map[string]User),
		byEmail:      make(map[string]string),
		transactions: make(map[string][]Transaction),
		gallery:      make(map[string][]GalleryEntry),
	}
}

func (m *Memory) GetUser(ctx context.Context, uid string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.users[uid]
	return &u, nil
}

func (m *Memory) PutUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UID] = *u
	m.byEmail[u.Email] = u.UID
	return nil
}

func (m *Memory) SetEmailVerified(ctx context.Context, uid string, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return ErrNotFound
	}
	u.EmailVerified = verified
	m.users[uid] = u
	return nil
}

func (m *Memory) AdjustCredits(ctx context.Context, uid string, tx Transaction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return 0, ErrNotFound
	}
	u.Credits += tx.Amount
	m.users[uid] = u
	m.transactions[uid] = append(m.transactions[uid], tx)
	return u.Credits, nil
}

func (m *Memory) ListTransactions(ctx context.Context, uid string) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transaction, len(m.transactions[uid]))
	copy(out, m.transactions[uid])
	return out, nil
}

func (m *Memory) PutGalleryEntry(ctx context.Context, e *GalleryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gallery[e.UID] = append(m.gallery[e.UID], *e)
	return nil
}

func (m *Memory) UpdateGalleryEntry(ctx context.Context, uid, id, url string, upscaled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.gallery[uid]
	for i := range entries {
		if entries[i].ID == id {
			entries[i].URL = url
			entries[i].Upscaled = upscaled
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListGalleryEntries(ctx context.Context, uid string) ([]GalleryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GalleryEntry, len(m.gallery[uid]))
	copy(out, m.gallery[uid])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
