package access

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
	"github.com/sysmanager-dev/sysmanager/pkg/session"
)

const scenarioToken = "eyJhbGciOiJIUzI1NiJ9.e30.sig"

// recordedRequest captures what the mock server saw
type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// mockServer answers every request with status and body and records it
func mockServer(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Auth:   r.Header.Get("Authorization"),
		}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			json.Unmarshal(raw, &rec.Body)
		}
		requests = append(requests, rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, &requests, &calls
}

func newTestService(t *testing.T, baseURI string, cfg Config) (*Service, *session.Holder) {
	t.Helper()

	d, err := dispatch.New(dispatch.Config{BaseURI: baseURI})
	require.NoError(t, err)

	holder := session.NewHolder()
	return NewService(d, holder, cfg), holder
}

func TestLoginAPIKey_Success(t *testing.T) {
	server, requests, _ := mockServer(t, http.StatusOK,
		`{"data":{"auth":true,"user":{"sessionId":"`+scenarioToken+`","orgId":"000000000000000000000001"}}}`)
	svc, _ := newTestService(t, server.URL, Config{})

	result, err := svc.LoginAPIKey(context.Background(), "key1")
	require.NoError(t, err)

	assert.True(t, result.Authenticated)
	assert.Equal(t, scenarioToken, result.User.SessionToken)
	assert.Equal(t, "000000000000000000000001", result.User.OrganizationID)
	assert.Empty(t, result.User.Profile)

	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodPost, (*requests)[0].Method)
	assert.Equal(t, "/login/api", (*requests)[0].Path)
	assert.Equal(t, map[string]any{"apiKey": "key1"}, (*requests)[0].Body)
}

func TestLoginAPIKey_Rejected(t *testing.T) {
	server, _, _ := mockServer(t, http.StatusUnauthorized, `{"message":"invalid key"}`)
	svc, _ := newTestService(t, server.URL, Config{})

	result, err := svc.LoginAPIKey(context.Background(), "bad")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, "invalid key", err.Error())
	assert.ErrorIs(t, err, dispatch.ErrRemote)
	assert.Equal(t, http.StatusUnauthorized, dispatch.StatusCode(err))
}

func TestLoginAPIKey_RequiresKey(t *testing.T) {
	server, _, calls := mockServer(t, http.StatusOK, `{}`)
	svc, _ := newTestService(t, server.URL, Config{})

	_, err := svc.LoginAPIKey(context.Background(), "")

	var validationErr *dispatch.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "apiKey", validationErr.Field)
	assert.Equal(t, int32(0), calls.Load())
}

func TestLoginUserPassword_MissingPassword(t *testing.T) {
	server, _, calls := mockServer(t, http.StatusOK, `{}`)
	svc, _ := newTestService(t, server.URL, Config{})

	_, err := svc.LoginUserPassword(context.Background(), UserPassword{Username: "ana"})

	var validationErr *dispatch.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "password", validationErr.Field)
	assert.Equal(t, "password is required", err.Error())
	assert.Equal(t, int32(0), calls.Load())
}

func TestLoginUserPassword_Paths(t *testing.T) {
	tests := []struct {
		name     string
		slug     string
		wantPath string
	}{
		{name: "no organization", wantPath: "/login"},
		{name: "organization slug", slug: "acme", wantPath: "/login/acme"},
		{name: "slug is escaped", slug: "acme/west", wantPath: "/login/acme%2Fwest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests, _ := mockServer(t, http.StatusOK,
				`{"data":{"auth":true,"user":{"sessionToken":"tok","organizationId":"org1","_id":"u1","email":"ana@example.com"}}}`)
			svc, _ := newTestService(t, server.URL, Config{})

			result, err := svc.LoginUserPassword(context.Background(), UserPassword{
				Username:         "ana",
				Password:         "secret",
				OrganizationSlug: tt.slug,
			})
			require.NoError(t, err)

			assert.Equal(t, "tok", result.User.SessionToken)
			assert.Equal(t, "org1", result.User.OrganizationID)
			assert.Equal(t, "u1", result.User.UserID)
			assert.Equal(t, map[string]any{"email": "ana@example.com"}, result.User.Profile)

			require.Len(t, *requests, 1)
			assert.Equal(t, tt.wantPath, (*requests)[0].Path)
			assert.Equal(t, map[string]any{"username": "ana", "password": "secret"}, (*requests)[0].Body)
		})
	}
}

func TestLoginSocial(t *testing.T) {
	server, requests, _ := mockServer(t, http.StatusOK,
		`{"data":{"auth":true,"user":{"sessionId":"tok","orgId":"org1"}}}`)
	svc, _ := newTestService(t, server.URL, Config{})

	result, err := svc.LoginSocial(context.Background(), ProviderGoogle, SocialToken{
		AccessToken:  "ya29.token",
		InitialRoles: []string{"member"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", result.User.SessionToken)

	result, err = svc.LoginSocial(context.Background(), ProviderFacebook, SocialToken{AccessToken: "EAAB"})
	require.NoError(t, err)
	assert.True(t, result.Authenticated)

	require.Len(t, *requests, 2)
	assert.Equal(t, "/login/google", (*requests)[0].Path)
	assert.Equal(t, map[string]any{"accessToken": "ya29.token", "initialRoles": []any{"member"}}, (*requests)[0].Body)
	assert.Equal(t, "/login/facebook", (*requests)[1].Path)
	assert.Equal(t, map[string]any{"accessToken": "EAAB"}, (*requests)[1].Body)
}

func TestLoginSocial_Validation(t *testing.T) {
	server, _, calls := mockServer(t, http.StatusOK, `{}`)
	svc, _ := newTestService(t, server.URL, Config{})

	_, err := svc.LoginSocial(context.Background(), Provider("github"), SocialToken{AccessToken: "x"})
	var validationErr *dispatch.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "provider", validationErr.Field)

	_, err = svc.LoginSocial(context.Background(), ProviderGoogle, SocialToken{})
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "accessToken", validationErr.Field)

	assert.Equal(t, int32(0), calls.Load())
}

func TestLoginSuperUser_StoresSession(t *testing.T) {
	server, _, _ := mockServer(t, http.StatusOK,
		`{"data":{"auth":true,"user":{"sessionId":"super-tok","orgId":"org1","_id":"admin"}}}`)
	svc, holder := newTestService(t, server.URL, Config{
		Strategy:    StrategyAPIKey,
		Credentials: Credentials{Key: "root-key"},
	})

	result, err := svc.LoginSuperUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", result.User.UserID)

	stored, ok := holder.Get()
	require.True(t, ok)
	assert.Equal(t, session.Session{Token: "super-tok", OrganizationID: "org1"}, stored)

	current, err := svc.SuperUserSession()
	require.NoError(t, err)
	assert.Equal(t, stored, current)
}

func TestLoginSuperUser_RequiresConfiguredKey(t *testing.T) {
	server, _, calls := mockServer(t, http.StatusOK, `{}`)
	svc, _ := newTestService(t, server.URL, Config{})

	_, err := svc.LoginSuperUser(context.Background())

	var validationErr *dispatch.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, int32(0), calls.Load())
}

func TestLoginSuperUser_NotAuthenticated(t *testing.T) {
	server, _, _ := mockServer(t, http.StatusOK, `{"data":{"auth":false,"user":{}}}`)
	svc, holder := newTestService(t, server.URL, Config{Credentials: Credentials{Key: "k"}})

	_, err := svc.LoginSuperUser(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, ok := holder.Get()
	assert.False(t, ok)
}

func TestLogin_ByStrategy(t *testing.T) {
	server, requests, _ := mockServer(t, http.StatusOK,
		`{"data":{"auth":true,"user":{"sessionId":"tok","orgId":"org1"}}}`)

	svc, _ := newTestService(t, server.URL, Config{
		Strategy:    StrategyUserPassword,
		Credentials: Credentials{Username: "ana", Password: "secret"},
	})
	_, err := svc.Login(context.Background())
	require.NoError(t, err)

	svc, holder := newTestService(t, server.URL, Config{
		Strategy:    StrategyAPIKey,
		Credentials: Credentials{Key: "root-key"},
	})
	_, err = svc.Login(context.Background())
	require.NoError(t, err)
	_, ok := holder.Get()
	assert.True(t, ok)

	require.Len(t, *requests, 2)
	assert.Equal(t, "/login", (*requests)[0].Path)
	assert.Equal(t, "/login/api", (*requests)[1].Path)

	svc, _ = newTestService(t, server.URL, Config{})
	_, err = svc.Login(context.Background())
	assert.ErrorIs(t, err, ErrNoStrategy)

	svc, _ = newTestService(t, server.URL, Config{Strategy: "oauth"})
	_, err = svc.Login(context.Background())
	var validationErr *dispatch.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "ok under data", body: `{"data":{"response":"OK"}}`, want: true},
		{name: "ok at top level", body: `{"response":"OK"}`, want: true},
		{name: "declined", body: `{"response":"NOT_OK"}`, want: false},
		{name: "empty body", body: `{}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests, _ := mockServer(t, http.StatusOK, tt.body)
			svc, _ := newTestService(t, server.URL, Config{})

			ok, err := svc.Logout(context.Background(), "tok")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)

			require.Len(t, *requests, 1)
			assert.Equal(t, http.MethodGet, (*requests)[0].Method)
			assert.Equal(t, "/logout", (*requests)[0].Path)
			assert.Equal(t, "tok", (*requests)[0].Auth)
		})
	}
}

func TestLogout_RemoteFailure(t *testing.T) {
	server, _, _ := mockServer(t, http.StatusForbidden, `{}`)
	svc, _ := newTestService(t, server.URL, Config{})

	ok, err := svc.Logout(context.Background(), "tok")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, dispatch.FallbackMessage, err.Error())
}

func TestLogoutSuperUser_ClearsSession(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{name: "accepted", status: http.StatusOK, body: `{"response":"OK"}`, want: true},
		{name: "declined", status: http.StatusOK, body: `{"response":"NOT_OK"}`},
		{name: "server error", status: http.StatusInternalServerError, body: `{"message":"boom"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests, _ := mockServer(t, tt.status, tt.body)
			svc, holder := newTestService(t, server.URL, Config{})
			require.NoError(t, holder.Set(session.Session{Token: "super-tok", OrganizationID: "org1"}))

			ok, err := svc.LogoutSuperUser(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, ok)

			_, stored := holder.Get()
			assert.False(t, stored)

			require.Len(t, *requests, 1)
			assert.Equal(t, "super-tok", (*requests)[0].Auth)
		})
	}
}

func TestLogoutSuperUser_NoSession(t *testing.T) {
	server, _, calls := mockServer(t, http.StatusOK, `{}`)
	svc, _ := newTestService(t, server.URL, Config{})

	_, err := svc.LogoutSuperUser(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = svc.SuperUserSession()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, int32(0), calls.Load())
}

func TestNormalize_AliasPriority(t *testing.T) {
	reply := authReply{
		Auth: true,
		User: map[string]any{
			"sessionId":    "primary",
			"sessionToken": "secondary",
			"orgId":        float64(7),
			"id":           "u9",
			"name":         "Ana",
		},
	}

	result := reply.normalize()
	assert.Equal(t, "primary", result.User.SessionToken)
	assert.Equal(t, "", result.User.OrganizationID)
	assert.Equal(t, "u9", result.User.UserID)
	assert.Equal(t, map[string]any{"name": "Ana"}, result.User.Profile)

	// The reply map is not mutated
	assert.Len(t, reply.User, 5)
}
