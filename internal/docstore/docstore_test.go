package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both backends must satisfy the same contract.
func TestStoreContract(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		s, err := Open(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		defer s.Close()
		runStoreTests(t, s)
	})
	t.Run("memory", func(t *testing.T) {
		runStoreTests(t, NewMemory())
	})
}

func runStoreTests(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	u := &User{
		UID:          "u1",
		Email:        "ada@example.com",
		PasswordHash: "$2a$fake",
		Credits:      10,
		CreatedAt:    now,
	}
	require.NoError(t, s.PutUser(ctx, u))

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, 10, got.Credits)
	assert.False(t, got.EmailVerified)

	byEmail, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.UID)

	_, err = s.GetUser(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetEmailVerified(ctx, "u1", true))
	got, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)

	// Debit and paired transaction in one step.
	balance, err := s.AdjustCredits(ctx, "u1", Transaction{
		ID: uuid.NewString(), UID: "u1", Reason: "Localized edit", Amount: -3, CreatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, balance)

	balance, err = s.AdjustCredits(ctx, "u1", Transaction{
		ID: uuid.NewString(), UID: "u1", Reason: "Refund: Localized edit", Amount: 3, CreatedAt: now.Add(time.Second),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, balance)

	txs, err := s.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 2)

	_, err = s.AdjustCredits(ctx, "ghost", Transaction{ID: uuid.NewString(), Amount: 1, CreatedAt: now})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGalleryEntries(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.PutUser(ctx, &User{UID: "u1", Email: "a@b.c", PasswordHash: "h", CreatedAt: now}))

	older := &GalleryEntry{ID: "g1", UID: "u1", URL: "file:///one", Prompt: "a cat", CreatedAt: now.Add(-time.Hour)}
	newer := &GalleryEntry{ID: "g2", UID: "u1", URL: "file:///two", Prompt: "a dog", CreatedAt: now}
	require.NoError(t, s.PutGalleryEntry(ctx, older))
	require.NoError(t, s.PutGalleryEntry(ctx, newer))

	entries, err := s.ListGalleryEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "g2", entries[0].ID, "newest first")
	assert.Equal(t, "g1", entries[1].ID)

	require.NoError(t, s.UpdateGalleryEntry(ctx, "u1", "g1", "file:///one-up", true))
	entries, err = s.ListGalleryEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "file:///one-up", entries[1].URL)
	assert.True(t, entries[1].Upscaled)

	err = s.UpdateGalleryEntry(ctx, "u1", "missing", "x", false)
	assert.ErrorIs(t, err, ErrNotFound)
}
