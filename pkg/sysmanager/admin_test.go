package sysmanager

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysmanager-dev/sysmanager/pkg/access"
)

func TestAdmin_RequiresSuperUser(t *testing.T) {
	calls := 0
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	ctx := context.Background()

	_, err := api.Admin.ListUsers(ctx, UserFilter{})
	assert.ErrorIs(t, err, access.ErrNoSession)

	_, err = api.Admin.DeactivateUser(ctx, "u1")
	assert.ErrorIs(t, err, access.ErrNoSession)

	_, err = api.Admin.ListOrganizations(ctx, Page{})
	assert.ErrorIs(t, err, access.ErrNoSession)

	assert.Zero(t, calls)
}

func TestAdmin_SuperUserLifecycle(t *testing.T) {
	var authHeaders []string

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/api", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "root-key", body["apiKey"])
		reply(w, `{"auth":true,"user":{"sessionId":"super-tok","orgId":"org1","_id":"root"}}`)
	})
	mux.HandleFunc("GET /admin/user", func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		assert.Equal(t, "org1", r.URL.Query().Get("organizationId"))
		reply(w, `[{"_id":"u1"},{"_id":"u2"}]`)
	})
	mux.HandleFunc("POST /admin/user/{id}/deactivate", func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		reply(w, `{"_id":"`+r.PathValue("id")+`","active":false}`)
	})
	mux.HandleFunc("GET /admin/organization", func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		reply(w, `[{"_id":"org1","slug":"acme"}]`)
	})
	mux.HandleFunc("GET /logout", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"OK"}`))
	})

	server := newTestServer(t, mux)
	api, err := New(Config{
		URI:  server,
		Auth: Auth{Type: AuthAPIKey, Credentials: Credentials{Key: "root-key"}},
	})
	require.NoError(t, err)
	ctx := context.Background()

	result, err := api.Access.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, "root", result.User.UserID)

	users, err := api.Admin.ListUsers(ctx, UserFilter{OrganizationID: "org1"})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	user, err := api.Admin.DeactivateUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", user.ID)
	assert.False(t, user.Active)

	orgs, err := api.Admin.ListOrganizations(ctx, Page{})
	require.NoError(t, err)
	assert.Equal(t, "acme", orgs[0].Slug)

	assert.Equal(t, []string{"super-tok", "super-tok", "super-tok"}, authHeaders)

	ok, err := api.Access.LogoutSuperUser(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = api.Admin.ListOrganizations(ctx, Page{})
	assert.ErrorIs(t, err, access.ErrNoSession)
}
