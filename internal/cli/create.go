package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/restoresentry/restoresentry-go/internal/workflow"
)

var (
	createDescription string
	createForce       bool
)

var createCommand = &cobra.Command{
	Use:     "create",
	GroupID: "restoresentry",
	Short:   "Create a checkpoint on demand",
	Long: `Creates one restore checkpoint immediately. The configured minimum
interval between checkpoints still applies unless --force is given, which
temporarily drops the subsystem's creation-frequency floor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("Restoresentry - Manual Checkpoint"))

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := workflow.SetupLogger(logLevel)
		deps, cleanup := buildDeps(cfg, logger)
		defer cleanup()

		created, err := workflow.RunManualCreate(cmd.Context(), cfg, deps, createDescription, createForce)
		if err != nil {
			return err
		}

		fmt.Printf("Created checkpoint %d: %s\n", created.ID, created.Description)
		return nil
	},
}

func init() {
	rootCommand.AddCommand(createCommand)
	createCommand.Flags().StringVar(&createDescription, "description", "", "Checkpoint description (defaults to the configured one)")
	createCommand.Flags().BoolVar(&createForce, "force", false, "Bypass the minimum interval between checkpoints")
}
