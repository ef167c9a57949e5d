package sysmanager

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// SessionInfo describes a server side session
type SessionInfo struct {
	Token          string    `json:"token"`
	UserID         string    `json:"userId"`
	OrganizationID string    `json:"organizationId"`
	Active         bool      `json:"active"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// SessionService introspects sessions
type SessionService struct {
	d *dispatch.Dispatcher
}

// Get looks up the session identified by token
func (s *SessionService) Get(ctx context.Context, token string) (*SessionInfo, error) {
	if err := dispatch.Required("token", token); err != nil {
		return nil, err
	}

	var info SessionInfo
	err := s.d.Call(ctx, dispatch.Request{
		Method: http.MethodGet,
		Path:   "/session",
		Query:  url.Values{"token": {token}},
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
