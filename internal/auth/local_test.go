package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-studio/lumen/internal/docstore"
)

func TestSignUpGrantsCreditsAndSignsIn(t *testing.T) {
	store := docstore.NewMemory()
	l := NewLocal(store, 10)
	ctx := context.Background()

	id, err := l.SignUp(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, id.UID)
	assert.False(t, id.EmailVerified)
	require.NotNil(t, l.Current())

	u, err := store.GetUser(ctx, id.UID)
	require.NoError(t, err)
	assert.Equal(t, 10, u.Credits)
	assert.NotEqual(t, "hunter22", u.PasswordHash, "password must be hashed")

	txs, err := store.ListTransactions(ctx, id.UID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Welcome credits", txs[0].Reason)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	l := NewLocal(docstore.NewMemory(), 0)
	ctx := context.Background()

	_, err := l.SignUp(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	_, err = l.SignUp(ctx, "ada@example.com", "pw2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignInWrongPassword(t *testing.T) {
	l := NewLocal(docstore.NewMemory(), 0)
	ctx := context.Background()

	_, err := l.SignUp(ctx, "ada@example.com", "correct")
	require.NoError(t, err)
	l.SignOut()

	_, err = l.SignIn(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = l.SignIn(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	id, err := l.SignIn(ctx, "ada@example.com", "correct")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Email)
}

func TestIdentityChangeNotifications(t *testing.T) {
	l := NewLocal(docstore.NewMemory(), 0)
	ctx := context.Background()

	var seen []*Identity
	unsub := l.OnIdentityChange(func(id *Identity) {
		seen = append(seen, id)
	})

	// Immediate callback with the signed-out state.
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	id, err := l.SignUp(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, id.UID, seen[1].UID)

	require.NoError(t, l.MarkVerified(ctx))
	require.Len(t, seen, 3)
	assert.True(t, seen[2].EmailVerified)

	l.SignOut()
	require.Len(t, seen, 4)
	assert.Nil(t, seen[3])

	unsub()
	_, err = l.SignIn(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Len(t, seen, 4, "unsubscribed listener must not fire")
}

func TestReauthenticate(t *testing.T) {
	l := NewLocal(docstore.NewMemory(), 0)
	ctx := context.Background()

	assert.ErrorIs(t, l.Reauthenticate(ctx, "pw"), ErrNotSignedIn)

	_, err := l.SignUp(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.NoError(t, l.Reauthenticate(ctx, "pw"))
	assert.ErrorIs(t, l.Reauthenticate(ctx, "nope"), ErrInvalidCredentials)
}

func TestRestore(t *testing.T) {
	store := docstore.NewMemory()
	l := NewLocal(store, 0)
	ctx := context.Background()

	id, err := l.SignUp(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	l.SignOut()

	restored, err := l.Restore(ctx, id.UID)
	require.NoError(t, err)
	assert.Equal(t, id.UID, restored.UID)
	require.NotNil(t, l.Current())

	_, err = l.Restore(ctx, "ghost")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
