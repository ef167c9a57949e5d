package sysmanager

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysmanager-dev/sysmanager/pkg/cipher"
)

func registrationMux(t *testing.T) *http.ServeMux {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "ana@example.com", body["email"])
		reply(w, `{"step":"confirm","context":{"organizationId":"org1","nonce":"n-42"}}`)
	})
	mux.HandleFunc("POST /register/confirm", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, map[string]any{"organizationId": "org1", "nonce": "n-42"}, body["context"])
		assert.Equal(t, "123456", body["code"])
		reply(w, `{"_id":"u1","email":"ana@example.com","organizationId":"org1"}`)
	})
	return mux
}

func TestRegistration_StartConfirm(t *testing.T) {
	api := newTestAPI(t, registrationMux(t))
	ctx := context.Background()

	registration, err := api.Registration.Start(ctx, RegistrationStart{Email: "ana@example.com", OrganizationName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "confirm", registration.Step)
	assert.NotContains(t, registration.Token, "org1")

	user, err := api.Registration.Confirm(ctx, registration.Token, RegistrationConfirm{Code: "123456", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "org1", user.OrganizationID)
}

func TestRegistration_TamperedToken(t *testing.T) {
	confirmCalls := 0
	mux := registrationMux(t)
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/register/confirm" {
			confirmCalls++
		}
		mux.ServeHTTP(w, r)
	}))
	ctx := context.Background()

	registration, err := api.Registration.Start(ctx, RegistrationStart{Email: "ana@example.com"})
	require.NoError(t, err)

	// Flip the first character, which lies inside the nonce
	replacement := "A"
	if registration.Token[0] == 'A' {
		replacement = "B"
	}
	tampered := replacement + registration.Token[1:]

	_, err = api.Registration.Confirm(ctx, tampered, RegistrationConfirm{Code: "123456", Password: "long-enough"})
	assert.ErrorIs(t, err, cipher.ErrTampered)
	assert.Equal(t, 0, confirmCalls)
}

func TestRegistration_CustomCipher(t *testing.T) {
	custom, err := cipher.New("tenant specific passphrase")
	require.NoError(t, err)

	api := newTestAPI(t, registrationMux(t), WithCipher(custom))
	registration, err := api.Registration.Start(context.Background(), RegistrationStart{Email: "ana@example.com"})
	require.NoError(t, err)

	var sealed map[string]any
	require.NoError(t, custom.Open(registration.Token, &sealed))
	assert.Equal(t, "org1", sealed["organizationId"])
	assert.ErrorIs(t, cipher.Default().Open(registration.Token, &sealed), cipher.ErrTampered)
}

func TestRegistration_Validation(t *testing.T) {
	api := newTestAPI(t, http.NotFoundHandler())
	ctx := context.Background()

	_, err := api.Registration.Start(ctx, RegistrationStart{Email: "nope"})
	assert.EqualError(t, err, "email failed email validation")

	_, err = api.Registration.Confirm(ctx, "", RegistrationConfirm{Code: "1", Password: "long-enough"})
	assert.EqualError(t, err, "token is required")

	_, err = api.Registration.Confirm(ctx, "tok", RegistrationConfirm{Code: "1", Password: "short"})
	assert.EqualError(t, err, "password failed min validation")
}
