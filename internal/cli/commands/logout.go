package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sysmanager-dev/sysmanager/internal/cli/auth"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(global)
			if err != nil {
				return err
			}
			return runLogout(cmd.Context(), cmd.OutOrStdout(), w)
		},
	}
}

// runLogout ends the server session and always forgets the local one
func runLogout(ctx context.Context, out io.Writer, w *workspace) error {
	current, err := w.session()
	if errors.Is(err, auth.ErrNotAuthenticated) {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}

	ok, logoutErr := w.api.Access.Logout(ctx, current.Token)

	if err := w.store.Clear(); err != nil {
		return err
	}

	if logoutErr != nil {
		return fmt.Errorf("server logout failed, local session removed: %w", logoutErr)
	}

	if ok {
		fmt.Fprintln(out, "✓ Logged out")
	} else {
		fmt.Fprintln(out, "Session was already closed on the server, local session removed")
	}
	return nil
}
