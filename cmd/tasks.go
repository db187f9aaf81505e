package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/competitor-research/internal/model"
	"github.com/sells-group/competitor-research/internal/store"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List research task status history",
	Long:  "Lists durable task status rows written by every research workflow, newest first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")
		session, _ := cmd.Flags().GetString("session")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.TaskFilter{
			Status:    model.TaskStatus(status),
			SessionID: session,
			Limit:     limit,
		}
		if filter.Status != "" && !filter.Status.Valid() {
			return eris.Errorf("unknown task status %q", status)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tasks, err := st.ListTaskStatuses(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "tasks list")
		}

		if len(tasks) == 0 {
			fmt.Fprintln(os.Stderr, "No tasks found.")
			return nil
		}

		formatTasksList(os.Stdout, tasks)
		return nil
	},
}

func init() {
	tasksCmd.Flags().String("status", "", "filter by status (pending, running, completed, failed)")
	tasksCmd.Flags().String("session", "", "filter by session id")
	tasksCmd.Flags().Int("limit", 50, "max number of tasks to display")
	rootCmd.AddCommand(tasksCmd)
}

// formatTasksList writes a tabular list of tasks to out.
func formatTasksList(out io.Writer, tasks []model.Task) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tSTATUS\tPROGRESS\tUPDATED\tMESSAGE")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t--------\t-------\t-------")

	for _, t := range tasks {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
			truncateID(t.ID),
			truncate(t.CompanyName, 30),
			t.Status,
			t.Progress,
			t.UpdatedAt.UTC().Format("2006-01-02 15:04"),
			truncate(t.Message, 50),
		)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
