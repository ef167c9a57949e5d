package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	token, claims, err := issuer.Generate("u1", "org1", true)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	got, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "org1", got.OrganizationID)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, claims.ID, got.ID)
}

func TestIssuer_RejectsForeignAndExpiredTokens(t *testing.T) {
	issuer, err := NewIssuer("test-secret", time.Minute)
	require.NoError(t, err)
	other, err := NewIssuer("other-secret", time.Minute)
	require.NoError(t, err)

	token, _, err := other.Generate("u1", "org1", false)
	require.NoError(t, err)
	_, err = issuer.Validate(token)
	assert.Error(t, err)

	token, _, err = issuer.Generate("u1", "org1", false)
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = issuer.Validate(token)
	assert.Error(t, err)

	_, err = issuer.Validate("not-a-jwt")
	assert.Error(t, err)
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer("", 0)
	assert.ErrorIs(t, err, ErrSecretNotSet)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("sandbox-password")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword("sandbox-password", hash))
	assert.Error(t, VerifyPassword("wrong", hash))
}

func TestHashAPIKey(t *testing.T) {
	assert.Equal(t, HashAPIKey("k1"), HashAPIKey("k1"))
	assert.NotEqual(t, HashAPIKey("k1"), HashAPIKey("k2"))
	assert.Len(t, HashAPIKey("k1"), 64)
}
