package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/restoresentry/restoresentry-go/internal/workflow"
)

var cleanupCommand = &cobra.Command{
	Use:     "cleanup",
	GroupID: "restoresentry",
	Short:   "Execute one checkpoint maintenance cycle",
	Long: `Runs the full maintenance pass once: evaluates the creation schedule
against the current inventory, creates a checkpoint if one is due, and prunes
old checkpoints down to the configured retention counts. Individual action
failures are reported but never fail the run; wire this to the OS scheduler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("Restoresentry - Maintenance Cycle"))

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := workflow.SetupLogger(logLevel)
		deps, cleanup := buildDeps(cfg, logger)
		defer cleanup()

		_, err = workflow.RunMaintenanceCycle(cmd.Context(), cfg, deps)
		return err
	},
}

func init() {
	rootCommand.AddCommand(cleanupCommand)
}
