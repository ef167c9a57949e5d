package sysmanager

import (
	"context"
	"net/http"
	"time"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// User is a System Manager account
type User struct {
	ID             string    `json:"_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	OrganizationID string    `json:"organizationId"`
	Roles          []string  `json:"roles,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UserUpdate holds the mutable profile fields. Nil fields are left unchanged.
type UserUpdate struct {
	Name  *string `json:"name,omitempty" validate:"omitnil,min=1"`
	Email *string `json:"email,omitempty" validate:"omitnil,email"`
}

// PasswordChange holds the parameters of ChangePassword
type PasswordChange struct {
	Current string `json:"currentPassword" validate:"required"`
	New     string `json:"newPassword" validate:"required,min=8,nefield=Current"`
}

// UserService reads and updates user accounts
type UserService struct {
	d *dispatch.Dispatcher
}

// Me returns the account owning token
func (s *UserService) Me(ctx context.Context, token string) (*User, error) {
	return s.get(ctx, token, endpoint("user", "me"))
}

// Get returns one user of the caller's organization
func (s *UserService) Get(ctx context.Context, token, id string) (*User, error) {
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}
	return s.get(ctx, token, endpoint("user", id))
}

// Update changes a user's profile and returns the stored result
func (s *UserService) Update(ctx context.Context, token, id string, update UserUpdate) (*User, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(update); err != nil {
		return nil, err
	}

	var user User
	err := s.d.Call(ctx, dispatch.Request{
		Method:  http.MethodPut,
		Path:    endpoint("user", id),
		Session: token,
		Body:    update,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword replaces the password of the account owning token
func (s *UserService) ChangePassword(ctx context.Context, token string, change PasswordChange) error {
	if err := requireSession(token); err != nil {
		return err
	}
	if err := dispatch.ValidateStruct(change); err != nil {
		return err
	}

	return s.d.Call(ctx, dispatch.Request{
		Method:  http.MethodPost,
		Path:    endpoint("user", "password"),
		Session: token,
		Body:    change,
	}, nil)
}

func (s *UserService) get(ctx context.Context, token, path string) (*User, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}

	var user User
	err := s.d.Call(ctx, dispatch.Request{
		Method:  http.MethodGet,
		Path:    path,
		Session: token,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// requireSession rejects calls that need a session but got none
func requireSession(token string) error {
	return dispatch.Required("session", token)
}
