package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron-ui/server"
	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"github.com/restoresentry/restoresentry-go/internal/workflow"
)

var (
	cycleSchedule string
	applySchedule string
	bindAddress   string
)

var monitorCommand = &cobra.Command{
	Use:     "monitor",
	GroupID: "restoresentry",
	Short:   "Run Restoresentry in monitor mode",
	Long: `Starts Restoresentry as a long-running service that executes the
maintenance cycle on a cron schedule and periodically re-applies the restore
subsystem configuration. Each tick is the same stateless cycle the cleanup
command runs once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		banner := fmt.Sprintf("Restoresentry - Monitor Mode \n\nVersion: %s\nBuild Date: %s", RestoresentryVersion, RestoresentryDate)
		fmt.Println(headerStyle.Render(banner))

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := workflow.SetupLogger(logLevel).With("component", "monitor")
		deps, cleanup := buildDeps(cfg, logger)
		defer cleanup()

		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		s.Start()
		logger.Info("Scheduler started", "drive", cfg.Drive)

		var cycleJob gocron.Job

		cycleJob, cycleJobError := s.NewJob(
			gocron.CronJob(
				cycleSchedule,
				false,
			),
			gocron.NewTask(func() {
				if _, err := workflow.RunMaintenanceCycle(context.Background(), cfg, deps); err != nil {
					logger.Error("Maintenance cycle aborted", "error", err)
				}

				if cycleJob != nil {
					if nextRun, err := cycleJob.NextRun(); err == nil {
						logger.Info("Maintenance cycle completed",
							"next_run", nextRun.Format(time.RFC3339),
							"job_id", cycleJob.ID())
					}
				}
			}),
			gocron.WithName("Checkpoint Maintenance Cycle"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if cycleJobError != nil {
			return cycleJobError
		}

		if nextRun, err := cycleJob.NextRun(); err == nil {
			logger.Info("Job Scheduled",
				"job_name", cycleJob.Name(),
				"job_id", cycleJob.ID(),
				"schedule", cycleSchedule,
				"next_run", nextRun.Format(time.RFC3339))
		}

		// --- Subsystem configuration re-apply ---
		var applyJob gocron.Job

		applyJob, applyErr := s.NewJob(
			gocron.CronJob(
				applySchedule,
				false,
			),
			gocron.NewTask(func() {
				if err := workflow.RunApply(context.Background(), cfg, deps); err != nil {
					logger.Error("Configuration re-apply failed", "error", err)
				}

				if applyJob != nil {
					if nextRun, err := applyJob.NextRun(); err == nil {
						logger.Info("Configuration re-apply completed",
							"next_run", nextRun.Format(time.RFC3339),
							"job_id", applyJob.ID())
					}
				}
			}),
			gocron.WithName("Restore Subsystem Configuration"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if applyErr != nil {
			return applyErr
		}

		if nextRun, err := applyJob.NextRun(); err == nil {
			logger.Info("Job Scheduled",
				"job_name", applyJob.Name(),
				"job_id", applyJob.ID(),
				"schedule", applySchedule,
				"next_run", nextRun.Format(time.RFC3339))
		}

		srv := server.NewServer(s, 8080, server.WithTitle("Restoresentry Go - Dashboard"))
		go func() {
			logger.Info("Restoresentry Scheduler UI started", "address", bindAddress)
			if err := http.ListenAndServe(bindAddress, srv.Router); err != nil {
				logger.Error("UI server stopped", "error", err)
			}
		}()

		// Block Main Thread until Signal
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Warn("Shutting down scheduler due to system signal...")
		return s.Shutdown()
	},
}

func init() {
	rootCommand.AddCommand(monitorCommand)
	monitorCommand.Flags().StringVar(&cycleSchedule, "cycle-schedule", "*/30 * * * *", "Cron schedule for the maintenance cycle")
	monitorCommand.Flags().StringVar(&applySchedule, "apply-schedule", "0 */12 * * *", "Cron schedule for re-applying subsystem configuration")
	monitorCommand.Flags().StringVar(&bindAddress, "bind-address", "0.0.0.0:8080", "Address to bind the UI server")
}
