package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sysmanager-dev/sysmanager/pkg/sysmanager"
)

// NewAdminCmd groups the super user commands. They run with the stored
// session, so log in with the super user API key first.
func NewAdminCmd(global *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Super user operations",
	}

	var filter sysmanager.UserFilter
	users := &cobra.Command{
		Use:   "users",
		Short: "List users across organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(global)
			if err != nil {
				return err
			}
			return runAdminUsers(cmd.Context(), cmd.OutOrStdout(), w, filter)
		},
	}
	users.Flags().StringVar(&filter.OrganizationID, "org", "", "Organization ID")
	users.Flags().StringVar(&filter.Email, "email", "", "Email address")
	users.Flags().IntVar(&filter.Page.Limit, "limit", 0, "Page size (max 500)")

	orgs := &cobra.Command{
		Use:   "orgs",
		Short: "List organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(global)
			if err != nil {
				return err
			}
			return runAdminOrgs(cmd.Context(), cmd.OutOrStdout(), w)
		},
	}

	deactivate := &cobra.Command{
		Use:   "deactivate <user-id>",
		Short: "Deactivate a user and end its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(global)
			if err != nil {
				return err
			}
			return runAdminDeactivate(cmd.Context(), cmd.OutOrStdout(), w, args[0])
		},
	}

	cmd.AddCommand(users, orgs, deactivate)
	return cmd
}

func runAdminUsers(ctx context.Context, out io.Writer, w *workspace, filter sysmanager.UserFilter) error {
	users, err := w.api.Admin.ListUsers(ctx, filter)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tORGANIZATION\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", u.ID, u.Email, u.OrganizationID, u.Active)
	}
	return tw.Flush()
}

func runAdminOrgs(ctx context.Context, out io.Writer, w *workspace) error {
	orgs, err := w.api.Admin.ListOrganizations(ctx, sysmanager.Page{})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLUG\tNAME")
	for _, o := range orgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.ID, o.Slug, o.Name)
	}
	return tw.Flush()
}

func runAdminDeactivate(ctx context.Context, out io.Writer, w *workspace, id string) error {
	user, err := w.api.Admin.DeactivateUser(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Deactivated %s (%s)\n", user.Email, user.ID)
	return nil
}
