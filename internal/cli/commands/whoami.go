package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// NewWhoAmICmd creates the whoami command
func NewWhoAmICmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(global)
			if err != nil {
				return err
			}
			return runWhoAmI(cmd.Context(), cmd.OutOrStdout(), w)
		},
	}
}

func runWhoAmI(ctx context.Context, out io.Writer, w *workspace) error {
	current, err := w.session()
	if err != nil {
		return err
	}

	user, err := w.api.Users.Me(ctx, current.Token)
	if err != nil {
		return err
	}

	org, err := w.api.Organizations.Get(ctx, current.Token, user.OrganizationID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Profile:      %s (%s)\n", w.profile.Name, w.profile.URI)
	fmt.Fprintf(out, "User:         %s (%s)\n", user.Email, user.ID)
	if user.Name != "" {
		fmt.Fprintf(out, "Name:         %s\n", user.Name)
	}
	fmt.Fprintf(out, "Organization: %s (%s)\n", org.Name, org.Slug)
	if len(user.Roles) > 0 {
		fmt.Fprintf(out, "Roles:        %s\n", strings.Join(user.Roles, ", "))
	}

	return nil
}
