package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/loom/internal/config"
	"github.com/agentic-research/loom/internal/journal"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs from the journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		path := journalPath
		if path == "" {
			path = settings.JournalPath
		}
		if path == "" {
			return fmt.Errorf("no journal configured: pass --journal or set LOOM_JOURNAL_PATH")
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		store, err := journal.Open(abs)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		records, err := store.RecentRuns(runsLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		for _, r := range records {
			line := fmt.Sprintf("#%d  %s  %-9s  %v  %s -> %s",
				r.ID, r.CreatedAt.Format(time.RFC3339), r.FinalState,
				r.Elapsed.Round(time.Millisecond), r.SchemaPath, r.OutputPath)
			if r.FinalState == "failed" {
				line += fmt.Sprintf("  [%s: %s]", r.FailedStage, r.Error)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum runs to show")
	runsCmd.Flags().StringVar(&journalPath, "journal", "", "SQLite journal to read")
	rootCmd.AddCommand(runsCmd)
}
