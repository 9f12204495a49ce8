package workflow

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// cycleLock is an advisory exclusive lock guarding one maintenance cycle
// against interleaved log/history writes when the external scheduler
// misfires and overlaps two invocations. It is not a correctness
// requirement: the decision engine is stateless and idempotent per
// inventory snapshot.
type cycleLock struct {
	path string
}

// staleLockAge is how old a lock file may be before it is considered
// abandoned by a killed invocation and stolen.
const staleLockAge = 30 * time.Minute

// acquireLock takes the advisory lock at path. The lock file carries the
// holder's pid for diagnostics.
func acquireLock(path string) (*cycleLock, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			_ = f.Close()
			return &cycleLock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file %s: %w", path, err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil || time.Since(info.ModTime()) < staleLockAge {
			return nil, fmt.Errorf("lock file %s is held by another invocation", path)
		}
		// Abandoned by a killed run; steal it.
		_ = os.Remove(path)
	}
	return nil, fmt.Errorf("lock file %s could not be acquired", path)
}

// release drops the lock. Safe on all exit paths.
func (l *cycleLock) release() {
	if l != nil {
		_ = os.Remove(l.path)
	}
}
