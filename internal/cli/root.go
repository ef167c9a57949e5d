package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sysmanager-dev/sysmanager/internal/cli/commands"
	"github.com/sysmanager-dev/sysmanager/internal/logger"
)

var version = "dev" // set with -ldflags at build time

// NewRootCmd builds the smctl command tree
func NewRootCmd() *cobra.Command {
	global := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "smctl",
		Short: "smctl - System Manager command line client",
		Long: `smctl talks to System Manager instances listed in ./sysmanager.yaml.

Sessions are kept per profile in the OS keychain.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if global.Debug {
				level = "debug"
			}
			logger.Init(level, "console")
		},
	}

	rootCmd.PersistentFlags().StringVar(&global.Profile, "profile", "", "Profile name (uses the selected profile if not specified)")
	rootCmd.PersistentFlags().BoolVar(&global.Debug, "debug", false, "Log every request")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "smctl version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewLoginCmd(global))
	rootCmd.AddCommand(commands.NewLogoutCmd(global))
	rootCmd.AddCommand(commands.NewWhoAmICmd(global))
	rootCmd.AddCommand(commands.NewSelectProfileCmd())
	rootCmd.AddCommand(commands.NewSearchCmd(global))
	rootCmd.AddCommand(commands.NewTasksCmd(global))
	rootCmd.AddCommand(commands.NewAdminCmd(global))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
