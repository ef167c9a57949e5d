package sysmanager

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sysmanager-dev/sysmanager/pkg/cipher"
	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// RegistrationStart holds the parameters of Start
type RegistrationStart struct {
	Email            string `json:"email" validate:"required,email"`
	Name             string `json:"name,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// RegistrationConfirm holds the parameters of Confirm
type RegistrationConfirm struct {
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// Registration is a pending signup. Token carries the server context sealed,
// so it survives a round trip through the client unaltered.
type Registration struct {
	Step  string `json:"step"`
	Token string `json:"token"`
}

type registrationReply struct {
	Step    string         `json:"step"`
	Context map[string]any `json:"context"`
}

type confirmRequest struct {
	Context  map[string]any `json:"context"`
	Code     string         `json:"code"`
	Password string         `json:"password"`
}

// RegistrationService drives the two step signup flow
type RegistrationService struct {
	d      *dispatch.Dispatcher
	cipher *cipher.Cipher
}

// Start begins a signup and returns the sealed registration token
func (s *RegistrationService) Start(ctx context.Context, start RegistrationStart) (*Registration, error) {
	if err := dispatch.ValidateStruct(start); err != nil {
		return nil, err
	}

	var reply registrationReply
	err := s.d.Call(ctx, dispatch.Request{
		Method: http.MethodPost,
		Path:   endpoint("register"),
		Body:   start,
	}, &reply)
	if err != nil {
		return nil, err
	}

	if reply.Context == nil {
		reply.Context = map[string]any{}
	}

	token, err := s.cipher.Seal(reply.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to seal registration context: %w", err)
	}

	return &Registration{Step: reply.Step, Token: token}, nil
}

// Confirm completes a signup started by Start. A token that was modified
// fails with cipher.ErrTampered before any request.
func (s *RegistrationService) Confirm(ctx context.Context, token string, confirm RegistrationConfirm) (*User, error) {
	if err := dispatch.Required("token", token); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(confirm); err != nil {
		return nil, err
	}

	var regContext map[string]any
	if err := s.cipher.Open(token, &regContext); err != nil {
		return nil, fmt.Errorf("invalid registration token: %w", err)
	}

	var user User
	err := s.d.Call(ctx, dispatch.Request{
		Method: http.MethodPost,
		Path:   endpoint("register", "confirm"),
		Body: confirmRequest{
			Context:  regContext,
			Code:     confirm.Code,
			Password: confirm.Password,
		},
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
