package sysmanager

import (
	"context"
	"net/http"
	"time"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// Document is a typed record stored by the System Manager
type Document struct {
	ID             string         `json:"_id"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Fields         map[string]any `json:"fields,omitempty"`
	OrganizationID string         `json:"organizationId"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// DocumentInput holds the parameters of Create and Update
type DocumentInput struct {
	Type   string         `json:"type" validate:"required"`
	Title  string         `json:"title,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// DocumentSearch holds the parameters of Search
type DocumentSearch struct {
	// Type restricts the search to one document type when set
	Type     string
	Criteria []Criterion
	Sort     string
	Page     Page
}

// SearchResult is one page of matching documents
type SearchResult struct {
	Total int        `json:"total"`
	Items []Document `json:"items"`
}

// DocumentService manages documents
type DocumentService struct {
	d *dispatch.Dispatcher
}

// Create stores a new document
func (s *DocumentService) Create(ctx context.Context, token string, input DocumentInput) (*Document, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(input); err != nil {
		return nil, err
	}

	return s.call(ctx, token, http.MethodPost, endpoint("document"), input)
}

// Get returns one document
func (s *DocumentService) Get(ctx context.Context, token, id string) (*Document, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}

	return s.call(ctx, token, http.MethodGet, endpoint("document", id), nil)
}

// Update replaces the content of a document
func (s *DocumentService) Update(ctx context.Context, token, id string, input DocumentInput) (*Document, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(input); err != nil {
		return nil, err
	}

	return s.call(ctx, token, http.MethodPut, endpoint("document", id), input)
}

// Delete removes a document
func (s *DocumentService) Delete(ctx context.Context, token, id string) error {
	if err := requireSession(token); err != nil {
		return err
	}
	if err := dispatch.Required("id", id); err != nil {
		return err
	}

	return s.d.Call(ctx, dispatch.Request{
		Method:  http.MethodDelete,
		Path:    endpoint("document", id),
		Session: token,
	}, nil)
}

// Search runs an advanced search. Invalid criteria fail before any request.
func (s *DocumentService) Search(ctx context.Context, token string, search DocumentSearch) (*SearchResult, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(search.Page); err != nil {
		return nil, err
	}

	query, err := EncodeSearch(search.Criteria)
	if err != nil {
		return nil, err
	}
	if search.Type != "" {
		query.Set("type", search.Type)
	}
	if search.Sort != "" {
		query.Set("sort", search.Sort)
	}
	search.Page.apply(query)

	env, err := s.d.Do(ctx, dispatch.Request{
		Method:  http.MethodGet,
		Path:    endpoint("document", "search"),
		Query:   query,
		Session: token,
	})
	if err != nil {
		return nil, err
	}

	result, err := dispatch.Unwrap(env, SearchResult{})
	if err != nil {
		return nil, err
	}
	if result.Items == nil {
		result.Items = []Document{}
	}
	return &result, nil
}

func (s *DocumentService) call(ctx context.Context, token, method, path string, body any) (*Document, error) {
	var doc Document
	err := s.d.Call(ctx, dispatch.Request{
		Method:  method,
		Path:    path,
		Session: token,
		Body:    body,
	}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
