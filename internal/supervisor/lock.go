package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// acquireLock takes the per-service lockfile, waiting up to the configured
// timeout. A lockfile owned by a dead process is stolen, so a crashed
// invocation cannot wedge the service forever.
func (s *Supervisor) acquireLock(service ServiceName) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir failed: %w", err)
	}

	path := filepath.Join(s.stateDir, string(service)+".lock")
	deadline := time.Now().Add(s.lockTimeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lockfile failed: %w", err)
		}

		if raw, readErr := os.ReadFile(path); readErr == nil {
			if owner, parseErr := strconv.Atoi(string(raw)); parseErr == nil && !processAlive(owner) {
				_ = os.Remove(path)
				continue
			}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: lock on %s held by another invocation", ErrTimedOut, service)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
