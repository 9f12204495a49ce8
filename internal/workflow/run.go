package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/restoresentry/restoresentry-go/internal/config"
	"github.com/restoresentry/restoresentry-go/internal/history"
	"github.com/restoresentry/restoresentry-go/internal/notifications"
	"github.com/restoresentry/restoresentry-go/internal/policy"
	"github.com/restoresentry/restoresentry-go/internal/provider"
)

// Deps carries the collaborators one invocation needs. Everything is
// injected; there are no ambient globals.
type Deps struct {
	Provider provider.Provider
	Notifier notifications.Notifier
	History  *history.Store // optional
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

func (d *Deps) fill() {
	if d.Notifier == nil {
		d.Notifier = notifications.Noop{}
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
}

// RunMaintenanceCycle executes one end-to-end maintenance pass: sync the
// provider's creation floor, fetch the inventory, run the decision engine,
// and apply the plan with independent fault isolation per action.
//
// Only two conditions are fatal: a broken configuration and an inventory
// fetch failure. Every action-level failure is recorded in the summary,
// reported via the notifier and the log, and never surfaces in the returned
// error, so the scheduled job never looks broken to the OS scheduler over a
// single stuck checkpoint.
func RunMaintenanceCycle(ctx context.Context, cfg *config.Config, deps Deps) (history.CycleRecord, error) {
	deps.fill()

	runID := fmt.Sprintf("run-%s", uuid.New().String())
	logger := deps.Logger.With("run_id", runID)

	summary := history.CycleRecord{
		RunID:     runID,
		StartedAt: deps.Clock.Now().UTC(),
	}

	logger.Info("Initializing checkpoint maintenance cycle")

	// Advisory guard against overlapping invocations. Holding it is not a
	// correctness requirement, so a held lock only downgrades to a warning.
	lock, lockErr := acquireLock(cfg.Paths.LockFile)
	if lockErr != nil {
		logger.Warn("Proceeding without the cycle lock", "error", lockErr)
	}
	defer lock.release()

	// Idempotent provider-side floor sync; safe to re-apply every cycle.
	if err := deps.Provider.SetMinimumCreationIntervalMinutes(ctx, cfg.MinInterframeMinutes); err != nil {
		logger.Warn("Creation-frequency floor sync failed; the subsystem keeps its previous value", "error", err)
	}

	inventory, err := deps.Provider.ListCheckpoints(ctx)
	if err != nil {
		// The one fatal provider condition: nothing downstream can run
		// without an inventory, and there is nothing to notify about.
		summary.FinishedAt = deps.Clock.Now().UTC()
		logger.Error("Checkpoint inventory fetch failed; aborting cycle", "error", err)
		return summary, fmt.Errorf("inventory fetch failed: %w", err)
	}
	summary.InventoryCount = len(inventory)

	for _, cp := range inventory {
		if !cp.TimeValid {
			summary.InvalidTimestamps++
			logger.Warn("Checkpoint timestamp could not be normalized; excluded from age checks",
				"checkpoint_id", cp.ID,
				"raw_created_at", cp.RawCreatedAt)
		}
	}

	inputs, err := cfg.DecideInputs()
	if err != nil {
		summary.FinishedAt = deps.Clock.Now().UTC()
		logger.Error("Configuration rejected at cycle time", "error", err)
		return summary, fmt.Errorf("configuration error: %w", err)
	}

	plan := policy.Decide(inventory, inputs, deps.Clock.Now())
	summary.Reason = plan.Reason
	summary.DeletesPlanned = len(plan.ToDelete)

	logger.Info("Action plan computed",
		"should_create", plan.ShouldCreate,
		"deletions_planned", len(plan.ToDelete),
		"reason", plan.Reason)

	executePlan(ctx, plan, deps, &summary, logger)

	summary.FinishedAt = deps.Clock.Now().UTC()

	if deps.History != nil {
		if err := deps.History.RecordCycle(summary); err != nil {
			logger.Warn("Cycle summary could not be persisted", "error", err)
		}
	}

	logger.Info("Maintenance cycle summary",
		"inventory_count", summary.InventoryCount,
		"invalid_timestamps", summary.InvalidTimestamps,
		"create_attempted", summary.CreateAttempted,
		"create_succeeded", summary.CreateSucceeded,
		"deletions_planned", summary.DeletesPlanned,
		"deletions_succeeded", summary.DeletesSucceeded,
		"deletions_failed", summary.DeletesFailed)

	return summary, nil
}

// executePlan applies the creation and deletion sub-plans. A creation
// failure never blocks pruning, and each deletion is attempted regardless of
// how its predecessors fared.
func executePlan(ctx context.Context, plan policy.ActionPlan, deps Deps, summary *history.CycleRecord, logger *slog.Logger) {
	if plan.ShouldCreate {
		summary.CreateAttempted = true
		createLogger := logger.With("description", plan.Description)

		created, err := deps.Provider.CreateCheckpoint(ctx, plan.Description, false)
		if err != nil {
			summary.CreateError = err.Error()
			createLogger.Error("Checkpoint creation failed", "error", err)
			notify(deps, logger, notifications.EventCreate, notifications.OutcomeFailure, map[string]string{
				"description": plan.Description,
				"error":       err.Error(),
			})
			recordAction(deps, logger, history.ActionRecord{
				RunID: summary.RunID, Verb: "create", Description: plan.Description,
				Outcome: "failure", Detail: err.Error(), OccurredAt: deps.Clock.Now().UTC(),
			})
		} else {
			summary.CreateSucceeded = true
			createLogger.Info("Checkpoint created", "checkpoint_id", created.ID)
			notify(deps, logger, notifications.EventCreate, notifications.OutcomeSuccess, map[string]string{
				"checkpoint_id": strconv.FormatInt(created.ID, 10),
				"description":   plan.Description,
			})
			recordAction(deps, logger, history.ActionRecord{
				RunID: summary.RunID, Verb: "create", TargetID: created.ID,
				Description: plan.Description, Outcome: "success", OccurredAt: deps.Clock.Now().UTC(),
			})
		}
	}

	for _, id := range plan.ToDelete {
		// A cancelled context stops scheduling new deletions; the next
		// cycle re-derives the remaining work from the inventory.
		if ctx.Err() != nil {
			logger.Warn("Cycle halted before remaining deletions", "error", ctx.Err())
			summary.DeletesFailed++
			continue
		}

		deleteLogger := logger.With("checkpoint_id", id)

		if err := deps.Provider.DeleteCheckpoint(ctx, id); err != nil {
			summary.DeletesFailed++
			deleteLogger.Error("Checkpoint deletion failed; continuing with the rest", "error", err)
			notify(deps, logger, notifications.EventDelete, notifications.OutcomeFailure, map[string]string{
				"checkpoint_id": strconv.FormatInt(id, 10),
				"error":         err.Error(),
			})
			recordAction(deps, logger, history.ActionRecord{
				RunID: summary.RunID, Verb: "delete", TargetID: id,
				Outcome: "failure", Detail: err.Error(), OccurredAt: deps.Clock.Now().UTC(),
			})
			continue
		}

		summary.DeletesSucceeded++
		deleteLogger.Info("Checkpoint deleted")
		notify(deps, logger, notifications.EventDelete, notifications.OutcomeSuccess, map[string]string{
			"checkpoint_id": strconv.FormatInt(id, 10),
		})
		recordAction(deps, logger, history.ActionRecord{
			RunID: summary.RunID, Verb: "delete", TargetID: id,
			Outcome: "success", OccurredAt: deps.Clock.Now().UTC(),
		})
	}
}

// notify delivers best-effort: a transport failure becomes a log entry and
// nothing else.
func notify(deps Deps, logger *slog.Logger, event notifications.Event, outcome notifications.Outcome, details map[string]string) {
	if err := deps.Notifier.Notify(event, outcome, details); err != nil {
		logger.Warn("Notification delivery failed",
			"event", string(event),
			"outcome", string(outcome),
			"error", err)
	}
}

func recordAction(deps Deps, logger *slog.Logger, rec history.ActionRecord) {
	if deps.History == nil {
		return
	}
	if err := deps.History.RecordAction(rec); err != nil {
		logger.Warn("Action outcome could not be persisted", "error", err)
	}
}
