package sysmanager

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// Organization is a tenant of the System Manager
type Organization struct {
	ID       string         `json:"_id"`
	Name     string         `json:"name"`
	Slug     string         `json:"slug"`
	Settings map[string]any `json:"settings,omitempty"`
}

// OrganizationUpdate holds the mutable organization fields
type OrganizationUpdate struct {
	Name     *string        `json:"name,omitempty" validate:"omitnil,min=1"`
	Settings map[string]any `json:"settings,omitempty"`
}

// OrganizationService reads and updates organizations
type OrganizationService struct {
	d *dispatch.Dispatcher
}

// Get returns one organization
func (s *OrganizationService) Get(ctx context.Context, token, id string) (*Organization, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}

	var org Organization
	err := s.d.Call(ctx, dispatch.Request{
		Method:  http.MethodGet,
		Path:    endpoint("organization", id),
		Session: token,
	}, &org)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Update changes an organization and returns the stored result
func (s *OrganizationService) Update(ctx context.Context, token, id string, update OrganizationUpdate) (*Organization, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(update); err != nil {
		return nil, err
	}

	var org Organization
	err := s.d.Call(ctx, dispatch.Request{
		Method:  http.MethodPut,
		Path:    endpoint("organization", id),
		Session: token,
		Body:    update,
	}, &org)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Members lists the users of an organization
func (s *OrganizationService) Members(ctx context.Context, token, id string, page Page) ([]User, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(page); err != nil {
		return nil, err
	}

	query := url.Values{}
	page.apply(query)

	env, err := s.d.Do(ctx, dispatch.Request{
		Method:  http.MethodGet,
		Path:    endpoint("organization", id, "members"),
		Query:   query,
		Session: token,
	})
	if err != nil {
		return nil, err
	}
	return dispatch.Unwrap(env, []User{})
}
