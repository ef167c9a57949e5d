package sysmanager

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// Notification is a message addressed to a user
type Notification struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationService lists and acknowledges notifications
type NotificationService struct {
	d *dispatch.Dispatcher
}

// List returns the session user's notifications, optionally only unread ones
func (s *NotificationService) List(ctx context.Context, token string, unreadOnly bool, page Page) ([]Notification, error) {
	if err := requireSession(token); err != nil {
		return nil, err
	}
	if err := dispatch.ValidateStruct(page); err != nil {
		return nil, err
	}

	query := url.Values{}
	if unreadOnly {
		query.Set("unread", "true")
	}
	page.apply(query)

	env, err := s.d.Do(ctx, dispatch.Request{
		Method:  http.MethodGet,
		Path:    endpoint("notification"),
		Query:   query,
		Session: token,
	})
	if err != nil {
		return nil, err
	}
	return dispatch.Unwrap(env, []Notification{})
}

// MarkRead acknowledges a notification
func (s *NotificationService) MarkRead(ctx context.Context, token, id string) error {
	if err := requireSession(token); err != nil {
		return err
	}
	if err := dispatch.Required("id", id); err != nil {
		return err
	}

	return s.d.Call(ctx, dispatch.Request{
		Method:  http.MethodPut,
		Path:    endpoint("notification", id, "read"),
		Session: token,
	}, nil)
}
