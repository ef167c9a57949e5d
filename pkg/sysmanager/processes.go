package sysmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// Process is a running instance of a workflow definition
type Process struct {
	ID         string         `json:"_id"`
	Definition string         `json:"definition"`
	Status     string         `json:"status"`
	Variables  map[string]any `json:"variables,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	EndedAt    *time.Time     `json:"endedAt,omitempty"`
}

// ProcessStart holds the parameters of Start
type ProcessStart struct {
	Definition string         `json:"definition" validate:"required"`
	Variables  map[string]any `json:"variables,omitempty"`
}

// ProcessService starts and inspects processes
type ProcessService struct {
	d *dispatch.Dispatcher
}

// Start launches a process
func (s *ProcessService) Start(ctx context.Context, token string, start ProcessStart) (*Process, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(start); err != nil {
		return nil, err
	}

	var process Process
	err := s.d.Call(ctx, dispatch.Request{
		Method:  http.MethodPost,
		Path:    endpoint("process"),
		Session: token,
		Body:    start,
	}, &process)
	if err != nil {
		return nil, err
	}
	return &process, nil
}

// Get returns one process
func (s *ProcessService) Get(ctx context.Context, token, id string) (*Process, error) {
	return s.call(ctx, token, id, http.MethodGet)
}

// Cancel stops a running process
func (s *ProcessService) Cancel(ctx context.Context, token, id string) (*Process, error) {
	return s.call(ctx, token, id, http.MethodPost, "cancel")
}

// Context returns the variables the server exposes for a process step
func (s *ProcessService) Context(ctx context.Context, token, id string) (map[string]any, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}

	raw, err := s.d.FetchContext(ctx, endpoint("process", id, "context"), token)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode process context: %w", err)
	}
	return out, nil
}

func (s *ProcessService) call(ctx context.Context, token, id, method string, action ...string) (*Process, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}

	var process Process
	err := s.d.Call(ctx, dispatch.Request{
		Method:  method,
		Path:    endpoint(append([]string{"process", id}, action...)...),
		Session: token,
	}, &process)
	if err != nil {
		return nil, err
	}
	return &process, nil
}
