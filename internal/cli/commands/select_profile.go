package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sysmanager-dev/sysmanager/internal/cli/config"
	"github.com/sysmanager-dev/sysmanager/internal/cli/profileselect"
	"github.com/sysmanager-dev/sysmanager/internal/cli/userconfig"
)

// NewSelectProfileCmd creates the select-profile command
func NewSelectProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select-profile [name-or-uri]",
		Short: "Select the profile to use for commands",
		Long: `Select the profile to use for commands in this project.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ smctl select-profile                          # Interactive selection
  $ smctl select-profile staging                  # Select by name
  $ smctl select-profile https://sm.example.com   # Select by URI`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var nameOrURI string
			if len(args) > 0 {
				nameOrURI = args[0]
			}
			return runSelectProfile(cmd.OutOrStdout(), nameOrURI)
		},
	}
}

func runSelectProfile(out io.Writer, nameOrURI string) error {
	projectPath, err := config.FindConfigFile()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'smctl init' to create a configuration file", err)
	}

	cfg, err := config.Load(projectPath)
	if err != nil {
		return err
	}

	var profile *config.Profile
	if nameOrURI != "" {
		profile, err = cfg.GetProfileByNameOrURI(nameOrURI)
	} else {
		profile, err = profileselect.Prompt(cfg)
	}
	if err != nil {
		return err
	}

	if err := userconfig.SetSelectedProfile(projectPath, profile.Name); err != nil {
		return fmt.Errorf("failed to save selected profile: %w", err)
	}

	fmt.Fprintf(out, "Selected profile: %s (%s)\n", profile.Name, profile.URI)
	return nil
}
