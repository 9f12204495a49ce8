package winrestore

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/restoresentry/restoresentry-go/internal/provider"
)

// CommandRunner abstracts command execution so the client can be exercised
// in tests without a Windows host.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// Client manages restore point operations through the Windows System Restore
// subsystem. Commands go through PowerShell (Get-ComputerRestorePoint,
// Checkpoint-Computer), vssadmin for the shadow storage quota, and the
// SystemRestore registry key for the creation-frequency floor. All calls are
// wrapped with retry logic for transient failures.
type Client struct {
	// Drive is the system drive the restore subsystem is managed on.
	Drive string
	// RetryConfig defines the behavior for transient error handling.
	RetryConfig provider.RetryConfig

	runner CommandRunner
}

var _ provider.Provider = (*Client)(nil)

// NewClient builds a Client for the given system drive ("C:" when empty).
func NewClient(drive string, retry provider.RetryConfig) *Client {
	if drive == "" {
		drive = "C:"
	}
	return &Client{
		Drive:       strings.TrimSuffix(drive, `\`),
		RetryConfig: retry,
		runner:      execRunner{},
	}
}

// NewClientWithRunner builds a Client around a custom CommandRunner. Used by
// tests and by any future non-shell transport.
func NewClientWithRunner(drive string, retry provider.RetryConfig, runner CommandRunner) *Client {
	c := NewClient(drive, retry)
	c.runner = runner
	return c
}

// executeWithRetry runs an operation using the client's retry configuration.
func (c *Client) executeWithRetry(ctx context.Context, opName string, operation func(ctx context.Context) error) error {
	return ExecuteAction(ctx, c.RetryConfig, opName, operation)
}

// powershell invokes a script fragment through a non-interactive PowerShell
// and classifies failures into typed provider errors.
func (c *Client) powershell(ctx context.Context, op, script string) (string, error) {
	stdout, stderr, err := c.runner.Run(ctx,
		"powershell.exe", "-NoProfile", "-NonInteractive", "-Command", script)
	if err != nil {
		return stdout, classify(op, stderr, err)
	}
	return stdout, nil
}
