package sysmanager

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sysmanager-dev/sysmanager/pkg/access"
	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// AdminService runs administrative calls as the super user. Access.LoginSuperUser
// must succeed first; until then every call fails with access.ErrNoSession.
type AdminService struct {
	d      *dispatch.Dispatcher
	access *access.Service
}

// UserFilter narrows ListUsers
type UserFilter struct {
	OrganizationID string
	Email          string
	Page           Page
}

// ListUsers lists users across organizations
func (s *AdminService) ListUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	if err := dispatch.ValidateStruct(filter.Page); err != nil {
		return nil, err
	}

	query := url.Values{}
	if filter.OrganizationID != "" {
		query.Set("organizationId", filter.OrganizationID)
	}
	if filter.Email != "" {
		query.Set("email", filter.Email)
	}
	filter.Page.apply(query)

	env, err := s.do(ctx, http.MethodGet, endpoint("admin", "user"), query)
	if err != nil {
		return nil, err
	}
	return dispatch.Unwrap(env, []User{})
}

// DeactivateUser disables an account
func (s *AdminService) DeactivateUser(ctx context.Context, id string) (*User, error) {
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}

	env, err := s.do(ctx, http.MethodPost, endpoint("admin", "user", id, "deactivate"), nil)
	if err != nil {
		return nil, err
	}

	user, err := dispatch.Unwrap(env, User{})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListOrganizations lists every organization
func (s *AdminService) ListOrganizations(ctx context.Context, page Page) ([]Organization, error) {
	if err := dispatch.ValidateStruct(page); err != nil {
		return nil, err
	}

	query := url.Values{}
	page.apply(query)

	env, err := s.do(ctx, http.MethodGet, endpoint("admin", "organization"), query)
	if err != nil {
		return nil, err
	}
	return dispatch.Unwrap(env, []Organization{})
}

func (s *AdminService) do(ctx context.Context, method, path string, query url.Values) (*dispatch.Envelope, error) {
	current, err := s.access.SuperUserSession()
	if err != nil {
		return nil, err
	}

	return s.d.Do(ctx, dispatch.Request{
		Method:  method,
		Path:    path,
		Query:   query,
		Session: current.Token,
	})
}
