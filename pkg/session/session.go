// Package session holds the active System Manager session for flows that run
// as a background principal. Callers that log in as themselves keep their
// own Session value and pass its token explicitly.
package session

import (
	"sync"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// Session is an authenticated principal. Token is opaque and must never be
// parsed by the SDK.
type Session struct {
	Token          string `json:"token"`
	OrganizationID string `json:"organizationId"`
}

// IsZero reports whether s carries no token
func (s Session) IsZero() bool {
	return s.Token == ""
}

// Store defines the interface for session storage operations.
// This allows the CLI to persist the session and tests to observe it.
type Store interface {
	Set(s Session) error
	Get() (Session, bool)
	Clear() error
}

// Holder is an in-memory Store safe for concurrent use
type Holder struct {
	mu      sync.RWMutex
	current Session
}

var _ Store = (*Holder)(nil)

// NewHolder returns an empty holder
func NewHolder() *Holder {
	return &Holder{}
}

// Set overwrites the stored session
func (h *Holder) Set(s Session) error {
	if err := dispatch.Required("token", s.Token); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = s
	return nil
}

// Get returns the stored session, or false when none was set
func (h *Holder) Get() (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current, !h.current.IsZero()
}

// Clear forgets the stored session
func (h *Holder) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = Session{}
	return nil
}
