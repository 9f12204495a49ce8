package provider

import (
	"context"
	"fmt"
	"time"
)

// Checkpoint is a read-only snapshot of one restore point as reported by the
// OS subsystem. The decision engine only ever sees normalized instances; raw
// provider timestamps never leave this package.
type Checkpoint struct {
	// ID is the provider-assigned sequence number. Unique, immutable.
	ID int64

	// Description is the free text set at creation time.
	Description string

	// CreatedAt is the normalized creation instant. Only meaningful when
	// TimeValid is true.
	CreatedAt time.Time

	// RawCreatedAt preserves the provider's original encoding for
	// diagnostics when normalization fails.
	RawCreatedAt string

	// Type is the provider's restore point type label (e.g.
	// "MODIFY_SETTINGS"). Display only.
	Type string

	// TimeValid reports whether RawCreatedAt could be normalized. Entries
	// with TimeValid=false still count toward inventory totals but are
	// excluded from all age arithmetic.
	TimeValid bool
}

// Provider is the contract the orchestrator needs from the OS restore
// subsystem. Implementations wrap the platform-specific commands; failures
// surface as *Error values so callers can classify them.
type Provider interface {
	// EnableRestore turns the restore subsystem on for the system drive and
	// applies the disk quota. quotaPercent must already be clamped to [8,100].
	EnableRestore(ctx context.Context, quotaPercent int) error

	// ListCheckpoints returns the current inventory, newest state wins.
	ListCheckpoints(ctx context.Context) ([]Checkpoint, error)

	// CreateCheckpoint requests a new restore point. The subsystem enforces
	// its own creation-frequency floor; force asks the implementation to
	// lift that floor for this one call.
	CreateCheckpoint(ctx context.Context, description string, force bool) (Checkpoint, error)

	// DeleteCheckpoint removes a single restore point by sequence number.
	DeleteCheckpoint(ctx context.Context, id int64) error

	// SetMinimumCreationIntervalMinutes sets the subsystem's own spacing
	// floor between two creations. Idempotent; safe to re-apply every run.
	SetMinimumCreationIntervalMinutes(ctx context.Context, n int) error
}

// ErrorKind classifies provider failures for the orchestrator's
// fatal/non-fatal decision.
type ErrorKind string

const (
	// KindUnavailable means the subsystem could not be reached at all.
	// Fatal for the cycle when it happens at inventory-fetch time.
	KindUnavailable ErrorKind = "unavailable"

	// KindTooSoon means the subsystem rejected a creation because a prior
	// checkpoint was made too recently. Logged, never retried in-cycle.
	KindTooSoon ErrorKind = "too-soon"

	KindPermissionDenied ErrorKind = "permission-denied"
	KindNotFound         ErrorKind = "not-found"
	KindUnknown          ErrorKind = "unknown"
)

// Error is the typed failure returned by Provider implementations.
type Error struct {
	Kind   ErrorKind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Detail, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Kind)
	}
	return fmt.Sprintf("%s failed (%s)", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed provider error.
func NewError(kind ErrorKind, op, detail string, err error) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Err: err}
}
