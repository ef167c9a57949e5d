package sysmanager

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

// Task is a unit of work produced by a process
type Task struct {
	ID        string         `json:"_id"`
	Name      string         `json:"name"`
	ProcessID string         `json:"processId"`
	Assignee  string         `json:"assignee,omitempty"`
	Status    TaskStatus     `json:"status"`
	Data      map[string]any `json:"data,omitempty"`
	DueAt     *time.Time     `json:"dueAt,omitempty"`
}

// TaskFilter narrows List. Empty fields do not filter.
type TaskFilter struct {
	Status   TaskStatus `json:"status" validate:"omitempty,oneof=open completed cancelled"`
	Assignee string     `json:"assignee"`
	Page     Page       `json:"-"`
}

// TaskService reads and completes tasks
type TaskService struct {
	d *dispatch.Dispatcher
}

// List returns the tasks visible to the session
func (s *TaskService) List(ctx context.Context, token string, filter TaskFilter) ([]Task, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(filter); err != nil {
		return nil, err
	}

	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Assignee != "" {
		query.Set("assignee", filter.Assignee)
	}
	filter.Page.apply(query)

	env, err := s.d.Do(ctx, dispatch.Request{
		Method:  http.MethodGet,
		Path:    endpoint("task"),
		Query:   query,
		Session: token,
	})
	if err != nil {
		return nil, err
	}
	return dispatch.Unwrap(env, []Task{})
}

// Get returns one task
func (s *TaskService) Get(ctx context.Context, token, id string) (*Task, error) {
	return s.call(ctx, token, id, http.MethodGet, nil)
}

// Complete finishes a task with the submitted data
func (s *TaskService) Complete(ctx context.Context, token, id string, data map[string]any) (*Task, error) {
	if data == nil {
		data = map[string]any{}
	}
	return s.call(ctx, token, id, http.MethodPost, map[string]any{"data": data}, "complete")
}

// Assign hands a task to another user
func (s *TaskService) Assign(ctx context.Context, token, id, userID string) (*Task, error) {
	if err := dispatch.Required("userId", userID); err != nil {
		return nil, err
	}
	return s.call(ctx, token, id, http.MethodPost, map[string]string{"userId": userID}, "assign")
}

func (s *TaskService) call(ctx context.Context, token, id, method string, body any, action ...string) (*Task, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.Required("id", id); err != nil {
		return nil, err
	}

	var task Task
	err := s.d.Call(ctx, dispatch.Request{
		Method:  method,
		Path:    endpoint(append([]string{"task", id}, action...)...),
		Session: token,
		Body:    body,
	}, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
