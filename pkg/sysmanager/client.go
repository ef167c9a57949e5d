// Package sysmanager is the System Manager SDK facade. New wires one shared
// dispatcher into every resource service.
//
// Calls made as a regular user take the session token explicitly:
//
//	api, err := sysmanager.New(sysmanager.Config{URI: "https://sm.example.com"})
//	result, err := api.Access.LoginUserPassword(ctx, access.UserPassword{Username: u, Password: p})
//	doc, err := api.Documents.Get(ctx, result.User.SessionToken, "doc-id")
//
// Admin calls run as the super user, whose session is kept by the facade
// after Access.LoginSuperUser.
package sysmanager

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sysmanager-dev/sysmanager/pkg/access"
	"github.com/sysmanager-dev/sysmanager/pkg/cipher"
	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
	"github.com/sysmanager-dev/sysmanager/pkg/session"
)

// API is the System Manager SDK entry point
type API struct {
	dispatcher *dispatch.Dispatcher
	store      session.Store

	Access        *access.Service
	Sessions      *SessionService
	Users         *UserService
	Organizations *OrganizationService
	Documents     *DocumentService
	Tasks         *TaskService
	Processes     *ProcessService
	Notifications *NotificationService
	Messaging     *MessagingService
	Registration  *RegistrationService
	Admin         *AdminService
}

// Option customizes New
type Option func(*options)

type options struct {
	store  session.Store
	cipher *cipher.Cipher
}

// WithSessionStore replaces the in-memory super user session holder
func WithSessionStore(store session.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithCipher replaces the cipher that seals registration context
func WithCipher(c *cipher.Cipher) Option {
	return func(o *options) {
		o.cipher = c
	}
}

// New validates cfg and builds the facade
func New(cfg Config, opts ...Option) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = session.NewHolder()
	}
	if o.cipher == nil {
		o.cipher = cipher.Default()
	}

	d, err := dispatch.New(cfg.dispatchConfig())
	if err != nil {
		return nil, err
	}

	api := &API{
		dispatcher: d,
		store:      o.store,
		Access:     access.NewService(d, o.store, cfg.accessConfig()),
	}
	api.Sessions = &SessionService{d: d}
	api.Users = &UserService{d: d}
	api.Organizations = &OrganizationService{d: d}
	api.Documents = &DocumentService{d: d}
	api.Tasks = &TaskService{d: d}
	api.Processes = &ProcessService{d: d}
	api.Notifications = &NotificationService{d: d}
	api.Messaging = &MessagingService{d: d}
	api.Registration = &RegistrationService{d: d, cipher: o.cipher}
	api.Admin = &AdminService{d: d, access: api.Access}

	return api, nil
}

// Dispatcher exposes the shared dispatcher for calls the SDK does not wrap
func (a *API) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// SessionStore returns the store holding the super user session
func (a *API) SessionStore() session.Store {
	return a.store
}

// endpoint joins escaped path segments, e.g. endpoint("document", id)
func endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}

// Page selects a window of a list result. Zero values use the server defaults.
type Page struct {
	Page  int `validate:"gte=0"`
	Limit int `validate:"gte=0,lte=500"`
}

func (p Page) apply(q url.Values) {
	if p.Page > 0 {
		q.Set("page", fmt.Sprint(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", fmt.Sprint(p.Limit))
	}
}
