package policy

import (
	"testing"
	"time"

	"github.com/restoresentry/restoresentry-go/internal/provider"
)

func mustSchedule(t *testing.T, spec Spec) Schedule {
	t.Helper()
	s, err := New(spec)
	if err != nil {
		t.Fatalf("New(%+v) unexpected error: %v", spec, err)
	}
	return s
}

// checkpointAges builds an inventory of n checkpoints aged 1..n days before
// now, ids ascending with recency (newest has the highest id).
func checkpointAges(now time.Time, n int) []provider.Checkpoint {
	inventory := make([]provider.Checkpoint, 0, n)
	for i := 1; i <= n; i++ {
		inventory = append(inventory, provider.Checkpoint{
			ID:          int64(n - i + 1),
			Description: "scheduled checkpoint",
			CreatedAt:   now.AddDate(0, 0, -i),
			TimeValid:   true,
		})
	}
	return inventory
}

func TestDecide_BootstrapCreation(t *testing.T) {
	now := time.Date(2025, 12, 21, 10, 0, 0, 0, time.UTC)

	// Scenario A: empty inventory creates regardless of policy and floor.
	in := Inputs{
		ScheduleEnabled:      false, // even with scheduling off
		MinimumCount:         10,
		MaximumCount:         20,
		MinInterframeMinutes: 1440,
		Description:          "bootstrap",
	}

	plan := Decide(nil, in, now)
	if !plan.ShouldCreate {
		t.Errorf("ShouldCreate = false, want true for empty inventory")
	}
	if len(plan.ToDelete) != 0 {
		t.Errorf("ToDelete = %v, want empty", plan.ToDelete)
	}
}

func TestDecide_ScheduleDisabled(t *testing.T) {
	now := time.Date(2025, 12, 21, 10, 0, 0, 0, time.UTC)
	in := Inputs{
		Schedule:        mustSchedule(t, Spec{Frequency: "interval", IntervalMinutes: 1}),
		ScheduleEnabled: false,
		MinimumCount:    1,
		MaximumCount:    10,
	}

	plan := Decide(checkpointAges(now, 3), in, now)
	if plan.ShouldCreate {
		t.Errorf("ShouldCreate = true, want false when scheduling is disabled. Reason: %s", plan.Reason)
	}
}

func TestDecide_IntervalSchedule(t *testing.T) {
	now := time.Date(2025, 12, 21, 10, 0, 0, 0, time.UTC)
	in := Inputs{
		Schedule:        mustSchedule(t, Spec{Frequency: "interval", IntervalMinutes: 120}),
		ScheduleEnabled: true,
		MinimumCount:    1,
		MaximumCount:    100,
	}

	tests := []struct {
		name    string
		lastAge time.Duration
		want    bool
	}{
		{name: "Elapsed below interval", lastAge: 90 * time.Minute, want: false},
		{name: "Elapsed exactly at interval", lastAge: 120 * time.Minute, want: true},
		{name: "Elapsed beyond interval", lastAge: 121 * time.Minute, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inventory := []provider.Checkpoint{
				{ID: 1, CreatedAt: now.Add(-tt.lastAge), TimeValid: true},
			}
			plan := Decide(inventory, in, now)
			if plan.ShouldCreate != tt.want {
				t.Errorf("ShouldCreate = %v, want %v. Reason: %s", plan.ShouldCreate, tt.want, plan.Reason)
			}
		})
	}
}

func TestDecide_CalendarSchedule(t *testing.T) {
	// Scenario C: daily at 02:00, last created today 01:00.
	in := Inputs{
		Schedule:        mustSchedule(t, Spec{Frequency: "daily", StartTime: "02:00"}),
		ScheduleEnabled: true,
		MinimumCount:    1,
		MaximumCount:    100,
	}
	inventory := []provider.Checkpoint{
		{ID: 1, CreatedAt: time.Date(2025, 12, 21, 1, 0, 0, 0, time.UTC), TimeValid: true},
	}

	early := Decide(inventory, in, time.Date(2025, 12, 21, 1, 30, 0, 0, time.UTC))
	if early.ShouldCreate {
		t.Errorf("at 01:30 ShouldCreate = true, want false. Reason: %s", early.Reason)
	}

	due := Decide(inventory, in, time.Date(2025, 12, 21, 2, 5, 0, 0, time.UTC))
	if !due.ShouldCreate {
		t.Errorf("at 02:05 ShouldCreate = false, want true. Reason: %s", due.Reason)
	}
}

func TestDecide_InterframeFloorWins(t *testing.T) {
	// Scenario D: floor 120m, last created 90m ago, calendar says due.
	now := time.Date(2025, 12, 21, 3, 0, 0, 0, time.UTC)
	in := Inputs{
		Schedule:             mustSchedule(t, Spec{Frequency: "daily", StartTime: "02:00"}),
		ScheduleEnabled:      true,
		MinimumCount:         1,
		MaximumCount:         100,
		MinInterframeMinutes: 120,
	}
	inventory := []provider.Checkpoint{
		// Created 90 minutes ago, 01:30, before today's 02:00 slot.
		{ID: 1, CreatedAt: now.Add(-90 * time.Minute), TimeValid: true},
	}

	plan := Decide(inventory, in, now)
	if plan.ShouldCreate {
		t.Errorf("ShouldCreate = true, want false: the spacing floor must win. Reason: %s", plan.Reason)
	}

	// Floor of zero disables the suppression.
	in.MinInterframeMinutes = 0
	plan = Decide(inventory, in, now)
	if !plan.ShouldCreate {
		t.Errorf("with floor disabled ShouldCreate = false, want true. Reason: %s", plan.Reason)
	}
}

func TestDecide_TimestampTieBreaksToHighestID(t *testing.T) {
	now := time.Date(2025, 12, 21, 10, 0, 0, 0, time.UTC)
	created := now.Add(-30 * time.Minute)
	inventory := []provider.Checkpoint{
		{ID: 4, CreatedAt: created, TimeValid: true},
		{ID: 9, CreatedAt: created, TimeValid: true},
		{ID: 2, CreatedAt: created.Add(-time.Hour), TimeValid: true},
	}

	last, ok := LastCreated(inventory)
	if !ok {
		t.Fatal("lastCreated() found nothing")
	}
	if last.ID != 9 {
		t.Errorf("last.ID = %d, want 9 (highest id wins the tie)", last.ID)
	}
}

func TestDecide_AllTimestampsInvalidSuppressesCreation(t *testing.T) {
	now := time.Date(2025, 12, 21, 10, 0, 0, 0, time.UTC)
	inventory := []provider.Checkpoint{
		{ID: 1, RawCreatedAt: "garbage"},
		{ID: 2, RawCreatedAt: "worse"},
	}
	in := Inputs{
		Schedule:        mustSchedule(t, Spec{Frequency: "interval", IntervalMinutes: 1}),
		ScheduleEnabled: true,
		MinimumCount:    1,
		MaximumCount:    100,
	}

	plan := Decide(inventory, in, now)
	if plan.ShouldCreate {
		t.Errorf("ShouldCreate = true, want false when no timestamp is usable. Reason: %s", plan.Reason)
	}
}

func TestDecide_PruneScenarioB(t *testing.T) {
	// Scenario B: 25 checkpoints aged 1..25 days, min 10, max 20.
	now := time.Date(2025, 12, 21, 10, 0, 0, 0, time.UTC)
	inventory := checkpointAges(now, 25)
	in := Inputs{
		ScheduleEnabled: false,
		MinimumCount:    10,
		MaximumCount:    20,
	}

	plan := Decide(inventory, in, now)
	if len(plan.ToDelete) != 15 {
		t.Fatalf("len(ToDelete) = %d, want 15", len(plan.ToDelete))
	}

	// The 15 oldest are ages 25..11 days, meaning ids 1..15, oldest first.
	for i, id := range plan.ToDelete {
		if id != int64(i+1) {
			t.Errorf("ToDelete[%d] = %d, want %d", i, id, i+1)
		}
	}
}

func TestDecide_PruneWithinMaxDoesNothing(t *testing.T) {
	now := time.Date(2025, 12, 21, 10, 0, 0, 0, time.UTC)
	in := Inputs{MinimumCount: 2, MaximumCount: 10}

	plan := Decide(checkpointAges(now, 10), in, now)
	if len(plan.ToDelete) != 0 {
		t.Errorf("ToDelete = %v, want empty when count <= max", plan.ToDelete)
	}
}

func TestDecide_PruneTieBreaksByAscendingID(t *testing.T) {
	now := time.Date(2025, 12, 21, 10, 0, 0, 0, time.UTC)
	created := now.AddDate(0, 0, -5)
	inventory := []provider.Checkpoint{
		{ID: 30, CreatedAt: created, TimeValid: true},
		{ID: 10, CreatedAt: created, TimeValid: true},
		{ID: 20, CreatedAt: created, TimeValid: true},
		{ID: 40, CreatedAt: now.Add(-time.Hour), TimeValid: true},
	}
	in := Inputs{MinimumCount: 2, MaximumCount: 3}

	plan := Decide(inventory, in, now)
	if len(plan.ToDelete) != 2 {
		t.Fatalf("len(ToDelete) = %d, want 2", len(plan.ToDelete))
	}
	if plan.ToDelete[0] != 10 || plan.ToDelete[1] != 20 {
		t.Errorf("ToDelete = %v, want [10 20] (equal timestamps delete lowest ids first)", plan.ToDelete)
	}
}

func TestDecide_PruneNeverSelectsInvalidTimestamps(t *testing.T) {
	now := time.Date(2025, 12, 21, 10, 0, 0, 0, time.UTC)
	inventory := []provider.Checkpoint{
		{ID: 1, RawCreatedAt: "garbage"}, // counted, never deleted
		{ID: 2, CreatedAt: now.AddDate(0, 0, -3), TimeValid: true},
		{ID: 3, CreatedAt: now.AddDate(0, 0, -2), TimeValid: true},
		{ID: 4, CreatedAt: now.AddDate(0, 0, -1), TimeValid: true},
	}
	in := Inputs{MinimumCount: 1, MaximumCount: 3}

	plan := Decide(inventory, in, now)
	for _, id := range plan.ToDelete {
		if id == 1 {
			t.Errorf("ToDelete contains the unnormalizable checkpoint #1: %v", plan.ToDelete)
		}
	}
}
