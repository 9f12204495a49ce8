package winrestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os/exec"
	"strings"
	"time"

	"github.com/restoresentry/restoresentry-go/internal/provider"
)

// classify maps a failed command invocation to a typed provider error by
// inspecting stderr and the exec error. The restore subsystem has no stable
// machine-readable error surface, so the well-known message fragments are
// matched case-insensitively.
func classify(op, stderr string, err error) *provider.Error {
	detail := strings.TrimSpace(stderr)
	lower := strings.ToLower(detail)

	switch {
	case strings.Contains(lower, "already been created within the past"),
		strings.Contains(lower, "0x80042302") && strings.Contains(lower, "frequency"):
		return provider.NewError(provider.KindTooSoon, op, detail, err)

	case strings.Contains(lower, "access is denied"),
		strings.Contains(lower, "access denied"),
		strings.Contains(lower, "requires elevation"),
		strings.Contains(lower, "run as administrator"):
		return provider.NewError(provider.KindPermissionDenied, op, detail, err)

	case strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "cannot find"),
		strings.Contains(lower, "returned 2"):
		return provider.NewError(provider.KindNotFound, op, detail, err)
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, context.DeadlineExceeded) {
		return provider.NewError(provider.KindUnavailable, op, detail, err)
	}

	return provider.NewError(provider.KindUnknown, op, detail, err)
}

// isRetryable reports whether an error is transient enough to warrant a
// retry. Typed rejections from the subsystem (too-soon, denied, not-found)
// describe a stable state and retrying them would only hammer it.
func isRetryable(err error) bool {
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		switch provErr.Kind {
		case provider.KindUnavailable, provider.KindUnknown:
			return true
		default:
			return false
		}
	}
	// Not classified: assume a transient execution problem.
	return true
}

// ExecuteAction wraps a function with retry logic: exponential backoff,
// jitter, and a per-operation timeout.
//
// opName is used for logging and error messages.
func ExecuteAction(ctx context.Context, cfg provider.RetryConfig, opName string, operation func(ctx context.Context) error) error {
	if cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.OperationTimeout)
		defer cancel()
	}

	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s timed out before attempt %d: %w", opName, attempt+1, ctx.Err())
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxRetries {
			break
		}

		slog.Warn("Transient error detected, scheduling retry",
			"operation", opName,
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"error", lastErr)

		// BaseDelay * 2^attempt, plus up to 50% jitter, capped at MaxDelay.
		backoff := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
		sleepDuration := time.Duration(backoff)
		if sleepDuration > 0 {
			sleepDuration += time.Duration(rand.Int63n(int64(backoff)/2 + 1))
		}
		if cfg.MaxDelay > 0 {
			sleepDuration = min(sleepDuration, cfg.MaxDelay)
		}

		select {
		case <-time.After(sleepDuration):
			continue
		case <-ctx.Done():
			return fmt.Errorf("%s context cancelled during backoff: %w", opName, ctx.Err())
		}
	}

	if cfg.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d retries: %w", opName, cfg.MaxRetries, lastErr)
}
