package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
)

// statusHistory is the number of recent results shown per task.
const statusHistory = 3

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and scheduler status",
	Long:  `Shows the persisted index, tracked sources and the recent watch scheduler runs.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context(), nil, nil)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	st := stylesFor(w)

	status, err := svc.Ingestor.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	printIngestStatus(w, st, svc.Settings.Paths.Index, status)

	if svc.Tasks == nil {
		return nil
	}
	tasks, err := svc.Tasks.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, st.Title("Scheduled Tasks"))
	if len(tasks) == 0 {
		fmt.Fprintln(w, st.Muted("  None. Run 'ragsync watch' to start the scheduler."))
		return nil
	}
	for i := range tasks {
		task := &tasks[i]
		state := "enabled"
		if !task.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(w, "  %s every %s (%s)\n", st.Label(task.Name), task.Interval, state)
		if !task.LastRun.IsZero() {
			fmt.Fprintf(w, "    Last run: %s\n", formatTime(task.LastRun))
		}
		if task.Enabled && !task.NextRun.IsZero() {
			fmt.Fprintf(w, "    Next run: %s\n", formatTime(task.NextRun))
		}
		if task.LastError != "" {
			fmt.Fprintf(w, "    %s %s\n", st.Failure("Last error:"), task.LastError)
		}

		history, err := svc.Tasks.GetTaskHistory(ctx, task.ID, statusHistory)
		if err != nil {
			return fmt.Errorf("failed to get history for %s: %w", task.ID, err)
		}
		for j := range history {
			fmt.Fprintf(w, "    %s\n", formatTaskResult(st, &history[j]))
		}
	}
	return nil
}

func printIngestStatus(w io.Writer, st *styles, indexPath string, status *driving.IngestStatus) {
	fmt.Fprintln(w, st.Title("Index"))
	fmt.Fprintf(w, "  Path: %s\n", indexPath)
	if status.Index == nil {
		fmt.Fprintln(w, st.Warning("  No index yet. Run 'ragsync ingest' first."))
	} else {
		fmt.Fprintf(w, "  Version: %s\n", status.Index.Version)
		fmt.Fprintf(w, "  Entries: %d\n", status.Index.Entries)
		fmt.Fprintf(w, "  Model: %s (%d dimensions)\n", status.Index.Model, status.Index.Dimensions)
		fmt.Fprintf(w, "  Size: %s\n", formatBytes(status.Index.SizeBytes))
	}
	fmt.Fprintf(w, "  Sources tracked: %d\n", status.Sources)
	fmt.Fprintf(w, "  Fingerprints: %d\n", status.Fingerprints)
	if status.Running {
		fmt.Fprintln(w, st.Label("  A cycle is running"))
	}
}

func formatTaskResult(st *styles, r *domain.TaskResult) string {
	outcome := st.Success("ok")
	if !r.Success {
		outcome = st.Failure("failed: " + r.Error)
	}
	return fmt.Sprintf("%s  %s  %d items  %s", formatTime(r.StartedAt),
		r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond), r.ItemsProcessed, outcome)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
