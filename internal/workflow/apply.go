package workflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/restoresentry/restoresentry-go/internal/config"
	"github.com/restoresentry/restoresentry-go/internal/notifications"
	"github.com/restoresentry/restoresentry-go/internal/policy"
	"github.com/restoresentry/restoresentry-go/internal/provider"
)

// RunApply pushes the configured subsystem settings to the host: restore
// protection on the target drive, the shadow-storage quota, and the
// checkpoint creation-frequency floor. It is idempotent and safe to rerun
// after every configuration change.
func RunApply(ctx context.Context, cfg *config.Config, deps Deps) error {
	deps.fill()
	logger := deps.Logger.With("drive", cfg.Drive)

	logger.Info("Applying restore subsystem configuration",
		"quota_percent", cfg.DiskQuotaPercent,
		"min_interframe_minutes", cfg.MinInterframeMinutes)

	if err := deps.Provider.EnableRestore(ctx, cfg.DiskQuotaPercent); err != nil {
		notify(deps, logger, notifications.EventApply, notifications.OutcomeFailure, map[string]string{
			"error": err.Error(),
		})
		return fmt.Errorf("enabling restore subsystem: %w", err)
	}

	if err := deps.Provider.SetMinimumCreationIntervalMinutes(ctx, cfg.MinInterframeMinutes); err != nil {
		notify(deps, logger, notifications.EventApply, notifications.OutcomeFailure, map[string]string{
			"error": err.Error(),
		})
		return fmt.Errorf("setting creation-frequency floor: %w", err)
	}

	notify(deps, logger, notifications.EventApply, notifications.OutcomeSuccess, map[string]string{
		"quota_percent":          strconv.Itoa(cfg.DiskQuotaPercent),
		"min_interframe_minutes": strconv.Itoa(cfg.MinInterframeMinutes),
	})
	logger.Info("Restore subsystem configuration applied")
	return nil
}

// RunManualCreate creates one checkpoint on demand. Without force the
// configured interframe floor still applies, judged against the newest
// valid checkpoint; force drops the provider-side floor for the attempt.
func RunManualCreate(ctx context.Context, cfg *config.Config, deps Deps, description string, force bool) (provider.Checkpoint, error) {
	deps.fill()

	if description == "" {
		description = cfg.Description
	}
	logger := deps.Logger.With("description", description)

	if !force {
		inventory, err := deps.Provider.ListCheckpoints(ctx)
		if err != nil {
			return provider.Checkpoint{}, fmt.Errorf("inventory fetch failed: %w", err)
		}
		if last, ok := policy.LastCreated(inventory); ok {
			elapsed := deps.Clock.Now().Sub(last.CreatedAt)
			floor := time.Duration(cfg.MinInterframeMinutes) * time.Minute
			if elapsed < floor {
				return provider.Checkpoint{}, provider.NewError(provider.KindTooSoon, "create checkpoint",
					fmt.Sprintf("last checkpoint is %s old, floor is %s; use --force to override",
						elapsed.Round(time.Minute), floor), nil)
			}
		}
	}

	created, err := deps.Provider.CreateCheckpoint(ctx, description, force)
	if err != nil {
		notify(deps, logger, notifications.EventCreate, notifications.OutcomeFailure, map[string]string{
			"description": description,
			"error":       err.Error(),
		})
		return provider.Checkpoint{}, err
	}

	logger.Info("Checkpoint created", "checkpoint_id", created.ID)
	notify(deps, logger, notifications.EventCreate, notifications.OutcomeSuccess, map[string]string{
		"checkpoint_id": strconv.FormatInt(created.ID, 10),
		"description":   description,
	})
	return created, nil
}

// ListCheckpoints fetches the inventory for display, warning about any
// entries whose timestamps could not be normalized.
func ListCheckpoints(ctx context.Context, deps Deps) ([]provider.Checkpoint, error) {
	deps.fill()

	inventory, err := deps.Provider.ListCheckpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory fetch failed: %w", err)
	}
	for _, cp := range inventory {
		if !cp.TimeValid {
			deps.Logger.Warn("Checkpoint timestamp could not be normalized",
				"checkpoint_id", cp.ID,
				"raw_created_at", cp.RawCreatedAt)
		}
	}
	return inventory, nil
}
