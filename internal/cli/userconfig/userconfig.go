package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = "sysmanager"
	configFileName = "config.json"
)

// UserConfig is the per-user state kept in ~/.config/sysmanager/config.json
type UserConfig struct {
	// SelectedProfiles maps a project config path to its chosen profile
	SelectedProfiles map[string]string `json:"selected_profiles,omitempty"`
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName, configFileName), nil
}

// Load reads the user configuration file. A missing file is an empty config.
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration, creating its directory
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	// Only profile names live here, sessions go to the keyring
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetSelectedProfile records the profile chosen for a project. An empty
// name clears the selection.
func SetSelectedProfile(project, name string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	if name == "" {
		delete(cfg.SelectedProfiles, project)
	} else {
		if cfg.SelectedProfiles == nil {
			cfg.SelectedProfiles = make(map[string]string)
		}
		cfg.SelectedProfiles[project] = name
	}
	return Save(cfg)
}

// GetSelectedProfile returns the profile chosen for a project, or ""
func GetSelectedProfile(project string) (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.SelectedProfiles[project], nil
}
