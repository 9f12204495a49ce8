package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/restoresentry/restoresentry-go/internal/config"
	"github.com/restoresentry/restoresentry-go/internal/history"
	"github.com/restoresentry/restoresentry-go/internal/notifications"
	"github.com/restoresentry/restoresentry-go/internal/provider"
	"github.com/restoresentry/restoresentry-go/internal/provider/winrestore"
	"github.com/restoresentry/restoresentry-go/internal/workflow"
)

var (
	configPath, logLevel string
	webhookURL           string
	webhookUsername      string
	webhookPassword      string
)

var rootCommand = &cobra.Command{
	Use:     "restoresentry-go",
	Aliases: []string{"restoresentry"},
	Short:   "RestoreSentry: Windows System Restore Checkpoint Manager",
	Long: `RestoreSentry is a policy-based checkpoint scheduler for the Windows
System Restore subsystem. It enforces a disk quota for restore storage,
creates checkpoints on Hourly, Daily, Weekly, Monthly or custom schedules,
and prunes old checkpoints down to configured retention counts.`,
}

func Execute() error {
	return rootCommand.Execute()
}

func init() {
	rootCommand.AddGroup(&cobra.Group{ID: "restoresentry", Title: "Restoresentry"})

	// Global Peristent Flags with env vars support
	rootCommand.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file (generated with defaults when absent)")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCommand.PersistentFlags().StringVar(&webhookURL, "webhook-url", "", "Webhook URL for alerting (overrides config)")
	rootCommand.PersistentFlags().StringVar(&webhookUsername, "webhook-username", "", "Webhook username for alerting")
	rootCommand.PersistentFlags().StringVar(&webhookPassword, "webhook-password", "", "Webhook password for alerting")
	// Bind to env vars
	_ = viper.BindPFlag("config", rootCommand.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log-level", rootCommand.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("webhook-url", rootCommand.PersistentFlags().Lookup("webhook-url"))

	viper.SetEnvPrefix("RESTORESENTRY")
	viper.AutomaticEnv()
}

// loadConfig resolves the config document, honoring the --config flag.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// buildNotifier assembles the delivery chain from config plus flag
// overrides. Flags win over the document so one-off runs can redirect
// alerts without editing it.
func buildNotifier(cfg *config.Config) notifications.Notifier {
	var chain notifications.Fanout

	url := cfg.Notifications.WebhookURL
	user := cfg.Notifications.WebhookUsername
	pass := cfg.Notifications.WebhookPassword
	if webhookURL != "" {
		url, user, pass = webhookURL, webhookUsername, webhookPassword
	}
	if url != "" {
		chain = append(chain, &notifications.Webhook{
			URL:      url,
			Username: user,
			Password: pass,
		})
	}

	if cfg.Notifications.SMTPHost != "" {
		chain = append(chain, &notifications.Email{
			Host:     cfg.Notifications.SMTPHost,
			Port:     cfg.Notifications.SMTPPort,
			From:     cfg.Notifications.SMTPFrom,
			To:       cfg.Notifications.SMTPTo,
			Username: cfg.Notifications.SMTPUsername,
			Password: cfg.Notifications.SMTPPassword,
		})
	}

	if len(chain) == 0 {
		return notifications.Noop{}
	}
	return chain
}

// buildDeps wires the full collaborator set for one command invocation.
// The history store is optional: a failure to open it degrades to a warning
// because auditability never outranks the maintenance itself.
func buildDeps(cfg *config.Config, logger *slog.Logger) (workflow.Deps, func()) {
	deps := workflow.Deps{
		Provider: winrestore.NewClient(cfg.Drive, provider.DefaultRetryConfig()),
		Notifier: buildNotifier(cfg),
		Logger:   logger,
	}

	cleanup := func() {}
	if cfg.Paths.HistoryDB != "" {
		store, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			logger.Warn("History database unavailable; continuing without audit records", "error", err)
		} else {
			deps.History = store
			cleanup = func() { _ = store.Close() }
		}
	}
	return deps, cleanup
}
