package access

import (
	"context"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// Provider is a social identity provider the System Manager accepts tokens from
type Provider string

const (
	ProviderFacebook Provider = "facebook"
	ProviderGoogle   Provider = "google"
)

// Valid reports whether p is a supported provider
func (p Provider) Valid() bool {
	return p == ProviderFacebook || p == ProviderGoogle
}

// SocialToken carries an access token the caller already obtained from the
// provider. The SDK never talks to the provider itself.
type SocialToken struct {
	AccessToken string `json:"accessToken" validate:"required"`

	// InitialRoles seeds the permissions of a first-time signup
	InitialRoles []string `json:"initialRoles,omitempty"`
}

// LoginSocial exchanges a provider access token for a System Manager session
func (s *Service) LoginSocial(ctx context.Context, provider Provider, token SocialToken) (*AuthResult, error) {
	if !provider.Valid() {
		return nil, &dispatch.ValidationError{Field: "provider", Rule: "oneof"}
	}

	if err := dispatch.ValidateStruct(token); err != nil {
		return nil, err
	}

	return s.login(ctx, loginPath+"/"+string(provider), token)
}
