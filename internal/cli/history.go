package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/restoresentry/restoresentry-go/internal/history"
)

var (
	historyLimit int
	historyRunID string
)

var historyCommand = &cobra.Command{
	Use:     "history",
	GroupID: "restoresentry",
	Short:   "Show recent maintenance cycle outcomes",
	Long:    `Reads the local history database and prints recent cycle summaries, or the individual action outcomes of one run when --run is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Paths.HistoryDB == "" {
			return fmt.Errorf("no history database configured (paths.history_db)")
		}

		store, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()

		if historyRunID != "" {
			return printRunActions(store, historyRunID)
		}
		return printRecentCycles(store, historyLimit)
	},
}

func printRecentCycles(store *history.Store, limit int) error {
	cycles, err := store.RecentCycles(limit)
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		fmt.Println("No cycles recorded yet.")
		return nil
	}

	fmt.Println(tableHeaderStyle.Render(fmt.Sprintf("%-42s %-22s %-9s %-8s %-9s %s", "RUN", "STARTED", "INVENTORY", "CREATED", "DELETED", "REASON")))
	for _, c := range cycles {
		created := "-"
		if c.CreateAttempted {
			created = "failed"
			if c.CreateSucceeded {
				created = "yes"
			}
		}
		deleted := fmt.Sprintf("%d/%d", c.DeletesSucceeded, c.DeletesPlanned)
		fmt.Printf("%-42s %-22s %-9d %-8s %-9s %s\n",
			c.RunID,
			c.StartedAt.Local().Format(time.RFC3339),
			c.InventoryCount,
			created,
			deleted,
			c.Reason)
	}
	return nil
}

func printRunActions(store *history.Store, runID string) error {
	actions, err := store.ActionsForRun(runID)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		fmt.Printf("No actions recorded for %s.\n", runID)
		return nil
	}

	fmt.Println(tableHeaderStyle.Render(fmt.Sprintf("%-8s %-10s %-9s %-22s %s", "VERB", "TARGET", "OUTCOME", "AT", "DETAIL")))
	for _, a := range actions {
		target := "-"
		if a.TargetID != 0 {
			target = fmt.Sprintf("%d", a.TargetID)
		}
		fmt.Printf("%-8s %-10s %-9s %-22s %s\n",
			a.Verb, target, a.Outcome,
			a.OccurredAt.Local().Format(time.RFC3339),
			a.Detail)
	}
	return nil
}

func init() {
	rootCommand.AddCommand(historyCommand)
	historyCommand.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of cycles to show")
	historyCommand.Flags().StringVar(&historyRunID, "run", "", "Show the action outcomes of one run id")
}
