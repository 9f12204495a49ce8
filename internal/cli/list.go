package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/restoresentry/restoresentry-go/internal/workflow"
)

var listCommand = &cobra.Command{
	Use:     "list",
	GroupID: "restoresentry",
	Short:   "List the checkpoints currently on the host",
	Long:    `Fetches the restore checkpoint inventory and prints it sorted by sequence number, flagging entries whose timestamps could not be read.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("Restoresentry - Checkpoint Inventory"))

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := workflow.SetupLogger(logLevel)
		deps, cleanup := buildDeps(cfg, logger)
		defer cleanup()

		inventory, err := workflow.ListCheckpoints(cmd.Context(), deps)
		if err != nil {
			return err
		}

		if len(inventory) == 0 {
			fmt.Println("No checkpoints found. The restore subsystem may be disabled; run 'restoresentry configure' first.")
			return nil
		}

		fmt.Println(tableHeaderStyle.Render(fmt.Sprintf("%-8s %-22s %-20s %s", "ID", "CREATED", "TYPE", "DESCRIPTION")))
		for _, cp := range inventory {
			created := cp.CreatedAt.Local().Format(time.RFC3339)
			if !cp.TimeValid {
				created = warnStyle.Render(fmt.Sprintf("unreadable (%s)", cp.RawCreatedAt))
			}
			fmt.Printf("%-8d %-22s %-20s %s\n", cp.ID, created, cp.Type, cp.Description)
		}
		return nil
	},
}

func init() {
	rootCommand.AddCommand(listCommand)
}
