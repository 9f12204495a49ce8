package provider

import "time"

// RetryConfig defines the parameters for the exponential backoff and retry
// mechanism used by provider implementations when talking to the OS
// subsystem.
type RetryConfig struct {
	// MaxRetries is the maximum number of additional attempts after the
	// initial failure. MaxRetries of 3 means at most 4 executions.
	MaxRetries int

	// BaseDelay is the initial wait before the first retry. The wait grows
	// exponentially with each attempt (BaseDelay * 2^attempt).
	BaseDelay time.Duration

	// MaxDelay caps the sleep between retries regardless of the exponential
	// calculation.
	MaxDelay time.Duration

	// OperationTimeout bounds the entire operation including all retries.
	OperationTimeout time.Duration
}

// DefaultRetryConfig is tuned for the restore subsystem: PowerShell
// invocations are slow and transient VSS contention clears within seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:       3,
		BaseDelay:        2 * time.Second,
		MaxDelay:         30 * time.Second,
		OperationTimeout: 5 * time.Minute,
	}
}
