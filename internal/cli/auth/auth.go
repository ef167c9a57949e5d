// Package auth keeps CLI sessions in the OS keychain
package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/sysmanager-dev/sysmanager/pkg/session"
)

const service = "sysmanager-cli"

// ErrNotAuthenticated is returned when a profile has no stored session
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'smctl login' first")

// KeyringStore is a session.Store persisted per profile in the OS
// keychain/credential manager
type KeyringStore struct {
	profile string
}

var _ session.Store = (*KeyringStore)(nil)

// NewKeyringStore returns the store for one profile
func NewKeyringStore(profile string) *KeyringStore {
	return &KeyringStore{profile: profile}
}

func (k *KeyringStore) key() string {
	return fmt.Sprintf("session-%s", k.profile)
}

// Set persists s, replacing any previous session
func (k *KeyringStore) Set(s session.Session) error {
	if s.IsZero() {
		return errors.New("refusing to store an empty session")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := keyring.Set(service, k.key(), string(data)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get returns the stored session. Unreadable entries count as absent.
func (k *KeyringStore) Get() (session.Session, bool) {
	s, err := k.Load()
	if err != nil {
		return session.Session{}, false
	}
	return s, true
}

// Load is Get with the reason for a missing session
func (k *KeyringStore) Load() (session.Session, error) {
	data, err := keyring.Get(service, k.key())
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return session.Session{}, ErrNotAuthenticated
		}
		return session.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return session.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.IsZero() {
		return session.Session{}, ErrNotAuthenticated
	}
	return s, nil
}

// Clear removes the stored session
func (k *KeyringStore) Clear() error {
	if err := keyring.Delete(service, k.key()); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
