package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sysmanager-dev/sysmanager/pkg/sysmanager"
)

// NewTasksCmd creates the tasks command
func NewTasksCmd(global *GlobalOptions) *cobra.Command {
	var (
		filter sysmanager.TaskFilter
		status string
	)

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(global)
			if err != nil {
				return err
			}
			filter.Status = sysmanager.TaskStatus(status)
			return runTasks(cmd.Context(), cmd.OutOrStdout(), w, filter)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "open, completed or cancelled")
	cmd.Flags().StringVar(&filter.Assignee, "assignee", "", "Assignee user ID")
	cmd.Flags().IntVar(&filter.Page.Limit, "limit", 0, "Page size (max 500)")

	return cmd
}

func runTasks(ctx context.Context, out io.Writer, w *workspace, filter sysmanager.TaskFilter) error {
	current, err := w.session()
	if err != nil {
		return err
	}

	tasks, err := w.api.Tasks.List(ctx, current.Token, filter)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tASSIGNEE\tDUE")
	fmt.Fprintln(tw, "──\t────\t──────\t────────\t───")
	for _, task := range tasks {
		due := "-"
		if task.DueAt != nil {
			due = formatTime(*task.DueAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", task.ID, task.Name, task.Status, task.Assignee, due)
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
