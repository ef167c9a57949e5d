package commands

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sysmanager-dev/sysmanager/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init <uri>",
		Short: "Add a System Manager instance to ./sysmanager.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), args[0], name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name (default, profile-2, ... when omitted)")

	return cmd
}

func runInit(out io.Writer, uri, name string) error {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid uri '%s': expected e.g. https://sm.example.com", uri)
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	cfg := &config.Config{}
	isNewConfig := true
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		isNewConfig = false
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	}

	if name != "" {
		if _, err := cfg.GetProfile(name); err == nil {
			return fmt.Errorf("profile '%s' already exists", name)
		}
	}

	profile, added := cfg.AddProfile(name, uri)
	if !added {
		fmt.Fprintf(out, "Profile %s already points at %s\n", profile.Name, uri)
		return nil
	}

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s with profile %s (%s)\n", config.ConfigFileName, profile.Name, uri)
	} else {
		fmt.Fprintf(out, "✓ Added profile %s (%s) to ./%s\n", profile.Name, uri, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext step:")
	fmt.Fprintln(out, "  Run 'smctl login' to authenticate")

	return nil
}
