package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysmanager-dev/sysmanager/internal/models"
)

func TestNew_InvalidCleanupSchedule(t *testing.T) {
	_, err := New(Options{JWTSecret: "s", CleanupSchedule: "every tuesday"}, zerolog.Nop())
	assert.ErrorContains(t, err, "invalid cleanup schedule")
}

func TestPurgeSessions(t *testing.T) {
	srv, err := New(Options{JWTSecret: "s"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	seed, err := srv.Seed(SeedOptions{APIKey: "k"})
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return now }

	longAgo := now.Add(-48 * time.Hour)
	recently := now.Add(-time.Hour)

	sessions := map[string]models.Session{
		"expired-long-ago": {ExpiresAt: longAgo},
		"expired-recently": {ExpiresAt: recently},
		"revoked-long-ago": {ExpiresAt: now.Add(time.Hour), RevokedAt: &longAgo},
		"revoked-recently": {ExpiresAt: now.Add(time.Hour), RevokedAt: &recently},
		"active":           {ExpiresAt: now.Add(time.Hour)},
	}
	for id, session := range sessions {
		session.ID = id
		session.UserID = seed.Admin.ID
		session.OrganizationID = seed.Organization.ID
		require.NoError(t, srv.DB().Create(&session).Error)
	}

	purged, err := srv.PurgeSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	var remaining []string
	require.NoError(t, srv.DB().Model(&models.Session{}).Order("id").Pluck("id", &remaining).Error)
	assert.Equal(t, []string{"active", "expired-recently", "revoked-recently"}, remaining)
}

func TestRunJanitor_StopsWithContext(t *testing.T) {
	srv, err := New(Options{JWTSecret: "s"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.RunJanitor(ctx, DefaultCleanupSchedule) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("janitor did not stop")
	}

	assert.Error(t, srv.RunJanitor(context.Background(), "nonsense"))
}
