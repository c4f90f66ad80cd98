package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gui-replay/gui-replay/internal/history"
)

var (
	historyDBFlag    string
	historyLimitFlag int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent replay runs",
	Long: `List replay runs recorded in the history database, newest first.

The database path comes from --db, or from the GUI_REPLAY_HISTORY
environment variable when the flag is not given. Runs are recorded
automatically by 'gui-replay replay' whenever that variable is set.

Examples:
  GUI_REPLAY_HISTORY=~/.gui-replay/history.db gui-replay history
  gui-replay history --db ./history.db --limit 5`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	historyCmd.Flags().StringVar(&historyDBFlag, "db", "",
		fmt.Sprintf("History database path (default: $%s)", HistoryEnvVar))
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 20,
		"Maximum number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	dbPath := historyDBFlag
	if dbPath == "" {
		dbPath = os.Getenv(HistoryEnvVar)
	}
	if dbPath == "" {
		return fmt.Errorf("no history database: pass --db or set %s", HistoryEnvVar)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := history.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(ctx, historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "gui-replay: no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSCENARIO\tENTRY POINT\tSTATUS\tFAILURES\tDURATION\tVIDEO")
	for _, r := range runs {
		video := r.VideoPath
		if video == "" {
			video = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%dms\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.ScenarioName, r.EntryPoint, r.Status, r.Failures, r.DurationMS, video)
	}
	return w.Flush()
}
