package sysmanager

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sysmanager-dev/sysmanager/internal/config"
	"github.com/sysmanager-dev/sysmanager/pkg/access"
	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// DefaultURI is used when Config.URI is empty
const DefaultURI = "http://localhost:8080"

// AuthType selects the static login strategy
type AuthType = access.Strategy

const (
	AuthNone         = access.StrategyNone
	AuthAPIKey       = access.StrategyAPIKey
	AuthUserPassword = access.StrategyUserPassword
)

// Credentials are the static secrets used by Login and LoginSuperUser
type Credentials = access.Credentials

// Auth configures static authentication
type Auth struct {
	Type        AuthType
	Credentials Credentials
}

// Debug toggles per-call logging
type Debug struct {
	Success bool
	Error   bool
}

// Config configures an API facade. It is copied by New.
type Config struct {
	// URI of the System Manager. Default: http://localhost:8080
	URI  string
	Auth Auth

	// AttemptsRetry is the number of extra attempts for HTTPStatusToRetry
	// and transport errors. Zero disables retries.
	AttemptsRetry     int
	HTTPStatusToRetry []int

	Debug Debug

	// Timeout bounds each HTTP attempt. Default: 30 seconds
	Timeout time.Duration

	Logger     *zerolog.Logger
	HTTPClient *http.Client
}

// Validate checks the fields New cannot default
func (c *Config) Validate() error {
	switch c.Auth.Type {
	case AuthNone:
	case AuthAPIKey:
		if err := dispatch.Required("auth.credentials.key", c.Auth.Credentials.Key); err != nil {
			return err
		}
	case AuthUserPassword:
		if err := dispatch.Required("auth.credentials.username", c.Auth.Credentials.Username); err != nil {
			return err
		}
		if err := dispatch.Required("auth.credentials.password", c.Auth.Credentials.Password); err != nil {
			return err
		}
	default:
		return &dispatch.ValidationError{Field: "auth.type", Rule: "oneof"}
	}

	if c.AttemptsRetry < 0 {
		return fmt.Errorf("attempts retry must not be negative, got: %d", c.AttemptsRetry)
	}

	return nil
}

func (c *Config) dispatchConfig() dispatch.Config {
	uri := c.URI
	if uri == "" {
		uri = DefaultURI
	}

	return dispatch.Config{
		BaseURI:           uri,
		Timeout:           c.Timeout,
		RetryAttempts:     c.AttemptsRetry,
		RetryableStatuses: c.HTTPStatusToRetry,
		Debug: dispatch.Debug{
			LogSuccess: c.Debug.Success,
			LogError:   c.Debug.Error,
		},
		Logger:     c.Logger,
		HTTPClient: c.HTTPClient,
	}
}

func (c *Config) accessConfig() access.Config {
	return access.Config{
		Strategy:    c.Auth.Type,
		Credentials: c.Auth.Credentials,
	}
}

// ConfigFromEnv builds a Config from SYSMANAGER_* variables and .env files
func ConfigFromEnv() (Config, error) {
	env, err := config.Load()
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	return Config{
		URI: env.API.URI,
		Auth: Auth{
			Type: AuthType(env.API.AuthType),
			Credentials: Credentials{
				Username: env.API.Username,
				Password: env.API.Password,
				Key:      env.API.APIKey,
			},
		},
		AttemptsRetry:     env.API.Retry.Attempts,
		HTTPStatusToRetry: env.API.Retry.Statuses,
		Debug: Debug{
			Success: env.API.LogOK,
			Error:   env.API.LogErrors,
		},
		Timeout: env.API.Timeout,
	}, nil
}
