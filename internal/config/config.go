package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/restoresentry/restoresentry-go/internal/policy"
)

// Quota bounds enforced on DiskQuotaPercent before the value ever reaches
// the provider. 8% is a hard floor regardless of what the document says.
const (
	QuotaFloorPercent   = 8
	QuotaCeilingPercent = 100
)

// ErrInvalid wraps configuration documents that load but violate an
// invariant. Fatal: nothing touches the provider with a broken config.
var ErrInvalid = errors.New("invalid configuration")

// NotificationConfig holds the optional delivery endpoints.
type NotificationConfig struct {
	WebhookURL      string `mapstructure:"webhook_url"`
	WebhookUsername string `mapstructure:"webhook_username"`
	WebhookPassword string `mapstructure:"webhook_password"`

	SMTPHost     string   `mapstructure:"smtp_host"`
	SMTPPort     int      `mapstructure:"smtp_port"`
	SMTPFrom     string   `mapstructure:"smtp_from"`
	SMTPTo       []string `mapstructure:"smtp_to"`
	SMTPUsername string   `mapstructure:"smtp_username"`
	SMTPPassword string   `mapstructure:"smtp_password"`
}

// Paths locates the files one invocation needs. All resolved at load time;
// no ambient globals.
type Paths struct {
	LockFile  string `mapstructure:"lock_file"`
	HistoryDB string `mapstructure:"history_db"`
}

// Config is the process-wide configuration, loaded once per invocation and
// immutable during it.
type Config struct {
	DiskQuotaPercent     int                `mapstructure:"disk_quota_percent"`
	MinimumCount         int                `mapstructure:"minimum_count"`
	MaximumCount         int                `mapstructure:"maximum_count"`
	ScheduleEnabled      bool               `mapstructure:"schedule_enabled"`
	CreationPolicy       policy.Spec        `mapstructure:"creation_policy"`
	MinInterframeMinutes int                `mapstructure:"min_interframe_minutes"`
	Description          string             `mapstructure:"checkpoint_description"`
	Drive                string             `mapstructure:"drive"`
	Notifications        NotificationConfig `mapstructure:"notifications"`
	Paths                Paths              `mapstructure:"paths"`
}

// DefaultPath is where the config document lives when no --config flag is
// given.
func DefaultPath() string {
	return filepath.Join(".", "restoresentry.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("disk_quota_percent", 10)
	v.SetDefault("minimum_count", 3)
	v.SetDefault("maximum_count", 10)
	v.SetDefault("schedule_enabled", true)
	v.SetDefault("creation_policy.frequency", "daily")
	v.SetDefault("creation_policy.start_time", "02:00")
	v.SetDefault("creation_policy.timezone", "UTC")
	v.SetDefault("min_interframe_minutes", 120)
	v.SetDefault("checkpoint_description", "restoresentry scheduled checkpoint")
	v.SetDefault("drive", "C:")
	v.SetDefault("paths.lock_file", filepath.Join(os.TempDir(), "restoresentry.lock"))
	v.SetDefault("paths.history_db", filepath.Join(".", "restoresentry-history.db"))

	// Viper only consults the environment for keys it already knows about,
	// so the optional notification endpoints need explicit empty defaults
	// to be settable via RESTORESENTRY_NOTIFICATIONS_* alone.
	v.SetDefault("notifications.webhook_url", "")
	v.SetDefault("notifications.webhook_username", "")
	v.SetDefault("notifications.webhook_password", "")
	v.SetDefault("notifications.smtp_host", "")
	v.SetDefault("notifications.smtp_port", 587)
	v.SetDefault("notifications.smtp_from", "")
	v.SetDefault("notifications.smtp_to", []string{})
	v.SetDefault("notifications.smtp_username", "")
	v.SetDefault("notifications.smtp_password", "")
}

// Load reads the configuration document at path, generating it with
// built-in defaults when absent (absence is not an error). Environment
// variables prefixed RESTORESENTRY_ override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RESTORESENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errorsIsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		// First run: persist the defaults so the user has something to edit.
		if writeErr := v.WriteConfigAs(path); writeErr != nil {
			return nil, fmt.Errorf("generating default config %s: %w", path, writeErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func errorsIsNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// normalize clamps and validates the loaded document.
func (c *Config) normalize() error {
	if c.DiskQuotaPercent < QuotaFloorPercent {
		c.DiskQuotaPercent = QuotaFloorPercent
	}
	if c.DiskQuotaPercent > QuotaCeilingPercent {
		c.DiskQuotaPercent = QuotaCeilingPercent
	}

	if c.MinimumCount < 1 {
		return fmt.Errorf("%w: minimum_count must be >= 1; got %d", ErrInvalid, c.MinimumCount)
	}
	if c.MaximumCount < 1 {
		return fmt.Errorf("%w: maximum_count must be >= 1; got %d", ErrInvalid, c.MaximumCount)
	}
	if c.MinimumCount > c.MaximumCount {
		return fmt.Errorf("%w: minimum_count %d exceeds maximum_count %d",
			ErrInvalid, c.MinimumCount, c.MaximumCount)
	}
	if c.MinInterframeMinutes < 0 {
		return fmt.Errorf("%w: min_interframe_minutes must be >= 0; got %d",
			ErrInvalid, c.MinInterframeMinutes)
	}

	// Surface schedule problems at load time, not mid-cycle.
	if _, err := policy.New(c.CreationPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.Description == "" {
		c.Description = "restoresentry scheduled checkpoint"
	}
	return nil
}

// Schedule builds the normalized creation schedule from the policy section.
func (c *Config) Schedule() (policy.Schedule, error) {
	return policy.New(c.CreationPolicy)
}

// DecideInputs assembles the decision engine inputs for one cycle.
func (c *Config) DecideInputs() (policy.Inputs, error) {
	schedule, err := c.Schedule()
	if err != nil {
		return policy.Inputs{}, err
	}
	return policy.Inputs{
		Schedule:             schedule,
		ScheduleEnabled:      c.ScheduleEnabled,
		MinimumCount:         c.MinimumCount,
		MaximumCount:         c.MaximumCount,
		MinInterframeMinutes: c.MinInterframeMinutes,
		Description:          c.Description,
	}, nil
}
