// Package access authenticates against the System Manager and normalizes
// every login strategy into an AuthResult.
package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
	"github.com/sysmanager-dev/sysmanager/pkg/session"
)

const (
	loginPath       = "/login"
	loginAPIKeyPath = "/login/api"
	logoutPath      = "/logout"

	logoutOK = "OK"
)

var (
	// ErrNoSession is returned when a super user call runs before LoginSuperUser
	ErrNoSession = errors.New("no super user session, login first")

	// ErrNotAuthenticated is returned when the server answers a login without
	// authenticating the principal
	ErrNotAuthenticated = errors.New("login was not authenticated")

	// ErrNoStrategy is returned by Login when no auth type is configured
	ErrNoStrategy = errors.New("no authentication strategy configured")
)

// Strategy selects how Login authenticates with static credentials
type Strategy string

const (
	StrategyNone         Strategy = ""
	StrategyAPIKey       Strategy = "apikey"
	StrategyUserPassword Strategy = "userpassword"
)

// Credentials are the statically configured secrets for Login and
// LoginSuperUser
type Credentials struct {
	Username string
	Password string
	Key      string
}

// Config holds the static authentication settings
type Config struct {
	Strategy    Strategy
	Credentials Credentials
}

// UserPassword holds username/password login parameters
type UserPassword struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`

	// OrganizationSlug scopes the login to one organization when set
	OrganizationSlug string `json:"-"`
}

type apiKeyLogin struct {
	APIKey string `json:"apiKey" validate:"required"`
}

// Service performs logins and logouts over a shared dispatcher
type Service struct {
	dispatcher *dispatch.Dispatcher
	store      session.Store
	cfg        Config
	logger     zerolog.Logger
}

// NewService returns an access service. store receives the super user
// session; it is never touched by the other login strategies.
func NewService(d *dispatch.Dispatcher, store session.Store, cfg Config) *Service {
	return &Service{
		dispatcher: d,
		store:      store,
		cfg:        cfg,
		logger:     d.Logger(),
	}
}

// LoginAPIKey authenticates with an API key
func (s *Service) LoginAPIKey(ctx context.Context, apiKey string) (*AuthResult, error) {
	body := apiKeyLogin{APIKey: apiKey}
	if err := dispatch.ValidateStruct(body); err != nil {
		return nil, err
	}

	return s.login(ctx, loginAPIKeyPath, body)
}

// LoginUserPassword authenticates with a username and password, optionally
// within one organization
func (s *Service) LoginUserPassword(ctx context.Context, params UserPassword) (*AuthResult, error) {
	if err := dispatch.ValidateStruct(params); err != nil {
		return nil, err
	}

	path := loginPath
	if params.OrganizationSlug != "" {
		path = loginPath + "/" + url.PathEscape(params.OrganizationSlug)
	}

	return s.login(ctx, path, params)
}

// LoginSuperUser logs in with the configured API key and stores the session
// for later administrative calls
func (s *Service) LoginSuperUser(ctx context.Context) (*AuthResult, error) {
	if err := dispatch.Required("apiKey", s.cfg.Credentials.Key); err != nil {
		return nil, err
	}

	result, err := s.LoginAPIKey(ctx, s.cfg.Credentials.Key)
	if err != nil {
		return nil, err
	}

	if !result.Authenticated || result.User.SessionToken == "" {
		return result, ErrNotAuthenticated
	}

	if err := s.store.Set(result.Session()); err != nil {
		return nil, fmt.Errorf("failed to store super user session: %w", err)
	}

	s.logger.Info().
		Str("user_id", result.User.UserID).
		Str("organization_id", result.User.OrganizationID).
		Msg("Super user logged in")

	return result, nil
}

// Login authenticates with the configured strategy. The api key strategy
// logs in as the super user.
func (s *Service) Login(ctx context.Context) (*AuthResult, error) {
	switch s.cfg.Strategy {
	case StrategyAPIKey:
		return s.LoginSuperUser(ctx)
	case StrategyUserPassword:
		return s.LoginUserPassword(ctx, UserPassword{
			Username: s.cfg.Credentials.Username,
			Password: s.cfg.Credentials.Password,
		})
	case StrategyNone:
		return nil, ErrNoStrategy
	default:
		return nil, &dispatch.ValidationError{Field: "auth.type", Rule: "oneof"}
	}
}

// SuperUserSession returns the stored super user session
func (s *Service) SuperUserSession() (session.Session, error) {
	current, ok := s.store.Get()
	if !ok {
		return session.Session{}, ErrNoSession
	}
	return current, nil
}

type logoutReply struct {
	Response string `json:"response"`
}

// Logout invalidates token on the server. It reports false, without an
// error, when the server declines the logout.
func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	if err := dispatch.Required("session", token); err != nil {
		return false, err
	}

	env, err := s.dispatcher.Do(ctx, dispatch.Request{
		Method:  http.MethodGet,
		Path:    logoutPath,
		Session: token,
	})
	if err != nil {
		return false, err
	}

	reply, err := dispatch.Unwrap(env, logoutReply{})
	if err != nil {
		return false, err
	}

	// Some deployments answer at the top level instead of under data
	if reply.Response == "" && len(env.Body) > 0 {
		_ = json.Unmarshal(env.Body, &reply)
	}

	return reply.Response == logoutOK, nil
}

// LogoutSuperUser logs out the stored super user session. The stored
// session is cleared whatever the outcome.
func (s *Service) LogoutSuperUser(ctx context.Context) (ok bool, err error) {
	current, found := s.store.Get()
	if !found {
		return false, ErrNoSession
	}

	defer func() {
		if clearErr := s.store.Clear(); clearErr != nil && err == nil {
			err = fmt.Errorf("failed to clear super user session: %w", clearErr)
		}
	}()

	ok, err = s.Logout(ctx, current.Token)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Super user logout failed, session cleared locally")
	}
	return ok, err
}

func (s *Service) login(ctx context.Context, path string, body any) (*AuthResult, error) {
	var reply authReply
	err := s.dispatcher.Call(ctx, dispatch.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	}, &reply)
	if err != nil {
		return nil, err
	}

	return reply.normalize(), nil
}
