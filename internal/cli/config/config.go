package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/sysmanager-dev/sysmanager/pkg/access"
)

const ConfigFileName = "sysmanager.yaml"

// Profile is one System Manager instance the CLI can talk to
type Profile struct {
	Name string `yaml:"name"`
	URI  string `yaml:"uri"`

	// Optional retry and timeout overrides
	RetryAttempts int    `yaml:"retryAttempts,omitempty"`
	RetryStatuses []int  `yaml:"retryStatuses,omitempty"`
	Timeout       string `yaml:"timeout,omitempty"`

	// OrganizationSlug scopes password logins when set
	OrganizationSlug string `yaml:"organization,omitempty"`
}

// Config represents the project configuration file
type Config struct {
	Profiles []Profile `yaml:"profiles"`

	// DefaultProvider is used by social logins without --provider
	DefaultProvider access.Provider `yaml:"defaultProvider,omitempty"`
}

// FindConfigFile searches for sysmanager.yaml in the current directory and
// its parents
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found in %s or any parent directory", ConfigFileName, currentDir)
}

// Load reads and validates the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from the current directory or a parent
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects unnamed and duplicate profiles
func (c *Config) Validate() error {
	seen := make([]string, 0, len(c.Profiles))
	for i, p := range c.Profiles {
		if p.Name == "" {
			return fmt.Errorf("profile %d has no name", i+1)
		}
		if slices.Contains(seen, p.Name) {
			return fmt.Errorf("duplicate profile '%s'", p.Name)
		}
		seen = append(seen, p.Name)
	}

	if c.DefaultProvider != "" && !c.DefaultProvider.Valid() {
		return fmt.Errorf("unsupported default provider '%s'", c.DefaultProvider)
	}

	return nil
}

// GetProfile returns a profile by name
func (c *Config) GetProfile(name string) (*Profile, error) {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("profile '%s' not found", name)
}

// GetProfileByURI returns the first profile pointing at uri
func (c *Config) GetProfileByURI(uri string) (*Profile, error) {
	for i := range c.Profiles {
		if c.Profiles[i].URI == uri {
			return &c.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("no profile for '%s'", uri)
}

// GetProfileByNameOrURI tries the name first, then the URI
func (c *Config) GetProfileByNameOrURI(nameOrURI string) (*Profile, error) {
	if p, err := c.GetProfile(nameOrURI); err == nil {
		return p, nil
	}
	if p, err := c.GetProfileByURI(nameOrURI); err == nil {
		return p, nil
	}
	return nil, fmt.Errorf("profile with name or URI '%s' not found", nameOrURI)
}

// AddProfile appends a profile for uri unless one exists. The first profile
// is named "default". It reports whether a profile was added.
func (c *Config) AddProfile(name, uri string) (*Profile, bool) {
	if existing, err := c.GetProfileByURI(uri); err == nil {
		return existing, false
	}

	if name == "" {
		name = "default"
		if len(c.Profiles) > 0 {
			name = fmt.Sprintf("profile-%d", len(c.Profiles)+1)
		}
	}

	c.Profiles = append(c.Profiles, Profile{Name: name, URI: uri})
	return &c.Profiles[len(c.Profiles)-1], true
}
