package commands

import (
	"fmt"
	"time"

	"github.com/sysmanager-dev/sysmanager/internal/cli/auth"
	"github.com/sysmanager-dev/sysmanager/internal/cli/config"
	"github.com/sysmanager-dev/sysmanager/internal/cli/profileselect"
	"github.com/sysmanager-dev/sysmanager/internal/logger"
	"github.com/sysmanager-dev/sysmanager/pkg/session"
	"github.com/sysmanager-dev/sysmanager/pkg/sysmanager"
)

// GlobalOptions are the persistent flags shared by every command
type GlobalOptions struct {
	Profile string
	Debug   bool
}

// workspace is what most commands need: the resolved profile, its stored
// session and an SDK facade bound to both
type workspace struct {
	projectPath string
	project     *config.Config
	profile     *config.Profile
	store       *auth.KeyringStore
	api         *sysmanager.API
}

// openWorkspace loads the project config and resolves the profile to use
func openWorkspace(opts *GlobalOptions) (*workspace, error) {
	projectPath, err := config.FindConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'smctl init' to create a configuration file", err)
	}

	project, err := config.Load(projectPath)
	if err != nil {
		return nil, err
	}

	profile, err := profileselect.ResolveProfile(projectPath, project, opts.Profile)
	if err != nil {
		return nil, err
	}

	if profile.URI == "" {
		return nil, fmt.Errorf("profile '%s' has no uri. Please edit %s", profile.Name, config.ConfigFileName)
	}

	store := auth.NewKeyringStore(profile.Name)
	api, err := newAPI(profile, store, opts.Debug)
	if err != nil {
		return nil, err
	}

	return &workspace{
		projectPath: projectPath,
		project:     project,
		profile:     profile,
		store:       store,
		api:         api,
	}, nil
}

// newAPI builds the SDK facade for a profile. The keyring store doubles as
// the super user store so admin commands reuse the CLI login.
func newAPI(profile *config.Profile, store session.Store, debug bool) (*sysmanager.API, error) {
	cfg := sysmanager.Config{
		URI:               profile.URI,
		AttemptsRetry:     profile.RetryAttempts,
		HTTPStatusToRetry: profile.RetryStatuses,
		Debug:             sysmanager.Debug{Success: debug, Error: debug},
		Logger:            logger.GetLogger(),
	}

	if profile.Timeout != "" {
		timeout, err := time.ParseDuration(profile.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout for profile '%s': %w", profile.Name, err)
		}
		cfg.Timeout = timeout
	}

	return sysmanager.New(cfg, sysmanager.WithSessionStore(store))
}

// session returns the stored session of the workspace profile
func (w *workspace) session() (session.Session, error) {
	return w.store.Load()
}
