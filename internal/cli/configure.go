package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/restoresentry/restoresentry-go/internal/config"
	"github.com/restoresentry/restoresentry-go/internal/workflow"
)

var configureUnattended bool

var configureCommand = &cobra.Command{
	Use:     "configure",
	GroupID: "restoresentry",
	Short:   "Apply the restore subsystem configuration to the host",
	Long: `Enables System Restore protection on the configured drive, resizes the
shadow-storage quota, and sets the checkpoint creation-frequency floor.
Idempotent: rerun it after every configuration change. The resolved settings
are echoed for review and confirmed interactively unless --unattended is
given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headerStyle.Render("Restoresentry - Configure"))

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if !configureUnattended {
			fmt.Fprint(cmd.OutOrStdout(), renderConfigReview(cfg))
			if !confirmApply(cmd.InOrStdin(), cmd.OutOrStdout()) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted; nothing was applied.")
				return nil
			}
		}

		logger := workflow.SetupLogger(logLevel)
		deps, cleanup := buildDeps(cfg, logger)
		defer cleanup()

		return workflow.RunApply(cmd.Context(), cfg, deps)
	},
}

// renderConfigReview formats the resolved settings for the pre-apply echo,
// after quota clamping and schedule validation have already run.
func renderConfigReview(cfg *config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resolved settings for drive %s:\n", cfg.Drive)
	fmt.Fprintf(&b, "  Disk quota:          %d%% of drive capacity\n", cfg.DiskQuotaPercent)
	fmt.Fprintf(&b, "  Retention:           keep between %d and %d checkpoints\n", cfg.MinimumCount, cfg.MaximumCount)
	fmt.Fprintf(&b, "  Creation schedule:   %s (enabled: %t)\n", cfg.CreationPolicy.Frequency, cfg.ScheduleEnabled)
	fmt.Fprintf(&b, "  Minimum interval:    %d minutes between checkpoints\n", cfg.MinInterframeMinutes)
	return b.String()
}

// confirmApply asks for an explicit go-ahead before touching the host.
// Anything other than y/yes, including EOF, aborts.
func confirmApply(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Apply these settings to the host? [y/N]: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCommand.AddCommand(configureCommand)
	configureCommand.Flags().BoolVar(&configureUnattended, "unattended", false, "Apply without the interactive review prompt")
}
