package winrestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/restoresentry/restoresentry-go/internal/provider"
)

// fakeRunner replays canned responses keyed on a substring of the invoked
// script, recording every call for assertions.
type fakeRunner struct {
	responses []fakeResponse
	calls     []string
}

type fakeResponse struct {
	match  string
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	full := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, full)
	for _, r := range f.responses {
		if strings.Contains(full, r.match) {
			return r.stdout, r.stderr, r.err
		}
	}
	return "", "", nil
}

func testRetryConfig() provider.RetryConfig {
	return provider.RetryConfig{
		MaxRetries:       0,
		BaseDelay:        time.Millisecond,
		MaxDelay:         time.Millisecond,
		OperationTimeout: time.Second,
	}
}

func TestListCheckpoints(t *testing.T) {
	listing := `[
		{"SequenceNumber": 12, "Description": "second", "CreationTime": "20251029133027.000000-000", "RestorePointType": 12},
		{"SequenceNumber": 7, "Description": "first", "CreationTime": "2025-10-28T09:00:00Z", "RestorePointType": 0},
		{"SequenceNumber": 9, "Description": "broken clock", "CreationTime": "garbage", "RestorePointType": 12}
	]`

	runner := &fakeRunner{responses: []fakeResponse{
		{match: "Get-ComputerRestorePoint", stdout: listing},
	}}
	client := NewClientWithRunner("C:", testRetryConfig(), runner)

	got, err := client.ListCheckpoints(context.Background())
	if err != nil {
		t.Fatalf("ListCheckpoints() unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	// Sorted by ascending sequence number.
	if got[0].ID != 7 || got[1].ID != 9 || got[2].ID != 12 {
		t.Errorf("order = %d,%d,%d, want 7,9,12", got[0].ID, got[1].ID, got[2].ID)
	}

	// WMI timestamp normalized.
	want := time.Date(2025, 10, 29, 13, 30, 27, 0, time.UTC)
	if !got[2].TimeValid || !got[2].CreatedAt.Equal(want) {
		t.Errorf("checkpoint 12 CreatedAt = %v (valid=%v), want %v", got[2].CreatedAt, got[2].TimeValid, want)
	}

	// Malformed timestamp retained but flagged.
	if got[1].TimeValid {
		t.Errorf("checkpoint 9 should have TimeValid=false")
	}
	if got[1].RawCreatedAt != "garbage" {
		t.Errorf("checkpoint 9 RawCreatedAt = %q", got[1].RawCreatedAt)
	}

	if got[2].Type != "MODIFY_SETTINGS" {
		t.Errorf("checkpoint 12 Type = %q, want MODIFY_SETTINGS", got[2].Type)
	}
}

func TestListCheckpoints_EmptySubsystem(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "Get-ComputerRestorePoint", stdout: "   \n"},
	}}
	client := NewClientWithRunner("C:", testRetryConfig(), runner)

	got, err := client.ListCheckpoints(context.Background())
	if err != nil {
		t.Fatalf("ListCheckpoints() unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestCreateCheckpoint_TooSoon(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{
			match:  "Checkpoint-Computer",
			stderr: "A new system restore point cannot be created because one has already been created within the past 1440 minutes.",
			err:    errors.New("exit status 1"),
		},
	}}
	client := NewClientWithRunner("C:", testRetryConfig(), runner)

	_, err := client.CreateCheckpoint(context.Background(), "nightly", false)
	if err == nil {
		t.Fatal("CreateCheckpoint() expected error")
	}

	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("error is %T, want *provider.Error", err)
	}
	if provErr.Kind != provider.KindTooSoon {
		t.Errorf("Kind = %s, want %s", provErr.Kind, provider.KindTooSoon)
	}
}

func TestCreateCheckpoint_Success(t *testing.T) {
	listing := `[{"SequenceNumber": 42, "Description": "manual point", "CreationTime": "2026-01-05T10:00:00Z", "RestorePointType": 12}]`
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "Checkpoint-Computer", stdout: ""},
		{match: "Get-ComputerRestorePoint", stdout: listing},
	}}
	client := NewClientWithRunner("C:", testRetryConfig(), runner)

	cp, err := client.CreateCheckpoint(context.Background(), "manual point", false)
	if err != nil {
		t.Fatalf("CreateCheckpoint() unexpected error: %v", err)
	}
	if cp.ID != 42 {
		t.Errorf("ID = %d, want 42", cp.ID)
	}
}

func TestCreateCheckpoint_ForceDropsFloorFirst(t *testing.T) {
	listing := `[{"SequenceNumber": 5, "Description": "forced", "CreationTime": "2026-01-05T10:00:00Z", "RestorePointType": 12}]`
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "Get-ComputerRestorePoint", stdout: listing},
	}}
	client := NewClientWithRunner("C:", testRetryConfig(), runner)

	if _, err := client.CreateCheckpoint(context.Background(), "forced", true); err != nil {
		t.Fatalf("CreateCheckpoint() unexpected error: %v", err)
	}

	if len(runner.calls) < 2 {
		t.Fatalf("expected at least 2 calls, got %d", len(runner.calls))
	}
	if !strings.Contains(runner.calls[0], "SystemRestorePointCreationFrequency") ||
		!strings.Contains(runner.calls[0], "-Value 0") {
		t.Errorf("first call should zero the creation frequency, got %q", runner.calls[0])
	}
	if !strings.Contains(runner.calls[1], "Checkpoint-Computer") {
		t.Errorf("second call should create the checkpoint, got %q", runner.calls[1])
	}
}

func TestDeleteCheckpoint_NotFound(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "SRRemoveRestorePoint", stderr: "SRRemoveRestorePoint returned 2", err: errors.New("exit status 1")},
	}}
	client := NewClientWithRunner("C:", testRetryConfig(), runner)

	err := client.DeleteCheckpoint(context.Background(), 99)

	var provErr *provider.Error
	if !errors.As(err, &provErr) || provErr.Kind != provider.KindNotFound {
		t.Fatalf("err = %v, want not-found provider error", err)
	}
}

func TestEnableRestore_QuotaCommand(t *testing.T) {
	runner := &fakeRunner{}
	client := NewClientWithRunner("C:", testRetryConfig(), runner)

	if err := client.EnableRestore(context.Background(), 12); err != nil {
		t.Fatalf("EnableRestore() unexpected error: %v", err)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(runner.calls))
	}
	if !strings.Contains(runner.calls[0], "Enable-ComputerRestore") {
		t.Errorf("first call = %q, want Enable-ComputerRestore", runner.calls[0])
	}
	if !strings.Contains(runner.calls[1], "vssadmin") || !strings.Contains(runner.calls[1], "/maxsize=12%") {
		t.Errorf("second call = %q, want vssadmin resize with 12%% quota", runner.calls[1])
	}
}

func TestExecuteAction_RetriesTransientOnly(t *testing.T) {
	cfg := provider.RetryConfig{
		MaxRetries:       2,
		BaseDelay:        time.Millisecond,
		MaxDelay:         2 * time.Millisecond,
		OperationTimeout: time.Second,
	}

	t.Run("transient error retried until success", func(t *testing.T) {
		attempts := 0
		err := ExecuteAction(context.Background(), cfg, "op", func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return provider.NewError(provider.KindUnavailable, "op", "boom", nil)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("permanent error fails fast", func(t *testing.T) {
		attempts := 0
		err := ExecuteAction(context.Background(), cfg, "op", func(ctx context.Context) error {
			attempts++
			return provider.NewError(provider.KindPermissionDenied, "op", "denied", nil)
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("exhausted retries wrap the last error", func(t *testing.T) {
		err := ExecuteAction(context.Background(), cfg, "op", func(ctx context.Context) error {
			return provider.NewError(provider.KindUnavailable, "op", "down", nil)
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), fmt.Sprintf("after %d retries", cfg.MaxRetries)) {
			t.Errorf("error = %v, want retry-exhausted wrap", err)
		}
	})
}
