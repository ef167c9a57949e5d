package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sysmanager-dev/sysmanager/pkg/access"
)

type loginOptions struct {
	apiKey   string
	username string
	password string
	org      string
	provider string
	token    string
	roles    []string
}

// readPassword prompts on the terminal. Replaced in tests.
var readPassword = func() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", errors.New("password is required in non-interactive mode (use --password flag or SYSMANAGER_PASSWORD env var)")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// NewLoginCmd creates the login command
func NewLoginCmd(global *GlobalOptions) *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a System Manager",
		Long: `Authenticate with a System Manager and keep the session in the OS keychain.

The strategy follows the flags given:
  --api-key                    API key login (also SYSMANAGER_API_KEY)
  --provider and --token       Facebook or Google access token
  --username [--password]      Username and password (also SYSMANAGER_USERNAME
                               and SYSMANAGER_PASSWORD, prompts when missing)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(global)
			if err != nil {
				return err
			}
			return runLogin(cmd.Context(), cmd.OutOrStdout(), w, opts)
		},
	}

	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "API key")
	cmd.Flags().StringVar(&opts.username, "username", "", "Username")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (will prompt if not provided)")
	cmd.Flags().StringVar(&opts.org, "org", "", "Organization slug for password logins")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Social provider: facebook or google")
	cmd.Flags().StringVar(&opts.token, "token", "", "Access token issued by the social provider")
	cmd.Flags().StringSliceVar(&opts.roles, "role", nil, "Initial role for a first social login (repeatable)")

	return cmd
}

func runLogin(ctx context.Context, out io.Writer, w *workspace, opts loginOptions) error {
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("SYSMANAGER_API_KEY")
	}
	if opts.username == "" {
		opts.username = os.Getenv("SYSMANAGER_USERNAME")
	}
	if opts.password == "" {
		opts.password = os.Getenv("SYSMANAGER_PASSWORD")
	}
	if opts.org == "" {
		opts.org = w.profile.OrganizationSlug
	}
	if opts.provider == "" && opts.token != "" {
		opts.provider = string(w.project.DefaultProvider)
	}

	fmt.Fprintf(out, "Logging in to %s (%s)...\n", w.profile.Name, w.profile.URI)

	var (
		result *access.AuthResult
		err    error
	)
	switch {
	case opts.apiKey != "":
		result, err = w.api.Access.LoginAPIKey(ctx, opts.apiKey)
	case opts.token != "":
		result, err = w.api.Access.LoginSocial(ctx, access.Provider(opts.provider), access.SocialToken{
			AccessToken:  opts.token,
			InitialRoles: opts.roles,
		})
	case opts.username != "":
		if opts.password == "" {
			opts.password, err = readPassword()
			if err != nil {
				return err
			}
		}
		result, err = w.api.Access.LoginUserPassword(ctx, access.UserPassword{
			Username:         opts.username,
			Password:         opts.password,
			OrganizationSlug: opts.org,
		})
	default:
		return errors.New("no credentials given (use --api-key, --username or --provider with --token)")
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if !result.Authenticated {
		return fmt.Errorf("login failed: %w", access.ErrNotAuthenticated)
	}

	if err := w.store.Set(result.Session()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintln(out, "✓ Login successful!")
	if email, ok := result.User.Profile["email"].(string); ok {
		fmt.Fprintf(out, "  User: %s\n", email)
	}
	fmt.Fprintf(out, "  Organization: %s\n", result.User.OrganizationID)

	return nil
}
