package policy

import (
	"fmt"
	"sort"
	"time"

	"github.com/restoresentry/restoresentry-go/internal/provider"
)

// Inputs carries everything Decide needs beside the inventory and the
// current time. The orchestrator builds it once per cycle from the loaded
// configuration.
type Inputs struct {
	// Schedule is the normalized creation schedule. May be nil when no
	// automatic creation is configured.
	Schedule Schedule

	// ScheduleEnabled gates automatic creation entirely.
	ScheduleEnabled bool

	// MinimumCount and MaximumCount bound the checkpoint population.
	// Pruning never drops the count below MinimumCount.
	MinimumCount int
	MaximumCount int

	// MinInterframeMinutes is the spacing floor this engine enforces
	// between two creations regardless of the schedule. Zero disables it.
	MinInterframeMinutes int

	// Description is attached to any checkpoint the plan creates.
	Description string
}

// ActionPlan is the engine's output for one cycle. It is ephemeral and
// never persisted; the next cycle re-derives everything from the provider.
type ActionPlan struct {
	ShouldCreate bool
	Description  string
	Reason       string

	// ToDelete lists checkpoint ids oldest-first.
	ToDelete []int64
}

// Decide computes the next create/prune actions for one maintenance cycle.
// It is a pure function: no I/O, no hidden state, deterministic for a given
// inventory, inputs, and now. Creation and pruning are two independent
// sub-decisions evaluated every cycle.
//
// Inventory entries with TimeValid=false count toward totals but are
// excluded from all age arithmetic and are never selected for deletion.
func Decide(inventory []provider.Checkpoint, in Inputs, now time.Time) ActionPlan {
	plan := ActionPlan{Description: in.Description}
	plan.ShouldCreate, plan.Reason = decideCreation(inventory, in, now)
	plan.ToDelete = decidePruning(inventory, in.MinimumCount, in.MaximumCount)
	return plan
}

func decideCreation(inventory []provider.Checkpoint, in Inputs, now time.Time) (bool, string) {
	if len(inventory) == 0 {
		return true, "no checkpoints exist; bootstrap creation"
	}

	if !in.ScheduleEnabled {
		return false, "scheduled creation is disabled"
	}

	last, ok := LastCreated(inventory)
	if !ok {
		// Every timestamp failed normalization: spacing cannot be proven,
		// so hold off rather than risk hammering the subsystem.
		return false, "no checkpoint has a usable timestamp; creation suppressed"
	}

	elapsed := now.Sub(last.CreatedAt)

	if in.MinInterframeMinutes > 0 {
		floor := time.Duration(in.MinInterframeMinutes) * time.Minute
		if elapsed < floor {
			return false, fmt.Sprintf(
				"last checkpoint #%d created %s ago is inside the %s spacing floor",
				last.ID, elapsed.Truncate(time.Second), floor)
		}
	}

	if in.Schedule == nil {
		return false, "no creation schedule configured"
	}

	next := in.Schedule.NextAfter(last.CreatedAt)
	if now.Before(next) {
		return false, fmt.Sprintf(
			"next %s creation is scheduled for %s",
			in.Schedule.Kind(), next.Format(time.RFC3339))
	}

	return true, fmt.Sprintf(
		"%s schedule fired at %s; last checkpoint #%d was created %s ago",
		in.Schedule.Kind(), next.Format(time.RFC3339), last.ID, elapsed.Truncate(time.Second))
}

// LastCreated returns the most recently created time-valid checkpoint.
// Equal timestamps (possible under clock coarseness) break toward the
// highest id.
func LastCreated(inventory []provider.Checkpoint) (provider.Checkpoint, bool) {
	var last provider.Checkpoint
	found := false

	for _, cp := range inventory {
		if !cp.TimeValid {
			continue
		}
		if !found ||
			cp.CreatedAt.After(last.CreatedAt) ||
			(cp.CreatedAt.Equal(last.CreatedAt) && cp.ID > last.ID) {
			last = cp
			found = true
		}
	}
	return last, found
}

// decidePruning selects the checkpoints to delete when the inventory exceeds
// MaximumCount. The delete set is the oldest entries ascending by creation
// time, ties broken by ascending id, sized to bring the count down to
// MinimumCount but never below it.
func decidePruning(inventory []provider.Checkpoint, minimumCount, maximumCount int) []int64 {
	count := len(inventory)
	if count <= maximumCount {
		return nil
	}

	// Guard even though min <= max makes a negative result impossible.
	deleteCount := count - minimumCount
	if deleteCount <= 0 {
		return nil
	}

	candidates := make([]provider.Checkpoint, 0, count)
	for _, cp := range inventory {
		if cp.TimeValid {
			candidates = append(candidates, cp)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	if deleteCount > len(candidates) {
		deleteCount = len(candidates)
	}

	ids := make([]int64, 0, deleteCount)
	for _, cp := range candidates[:deleteCount] {
		ids = append(ids, cp.ID)
	}
	return ids
}
