package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/sysmanager-dev/sysmanager/pkg/session"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store := NewKeyringStore("default")
	other := NewKeyringStore("staging")

	_, ok := store.Get()
	assert.False(t, ok)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	want := session.Session{Token: "tok-1", OrganizationID: "org-1"}
	require.NoError(t, store.Set(want))

	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = other.Get()
	assert.False(t, ok, "sessions are per profile")

	require.NoError(t, store.Clear())
	_, ok = store.Get()
	assert.False(t, ok)

	// Clearing twice is fine
	require.NoError(t, store.Clear())
}

func TestKeyringStore_RejectsEmptySession(t *testing.T) {
	keyring.MockInit()

	err := NewKeyringStore("default").Set(session.Session{})
	assert.Error(t, err)
}
