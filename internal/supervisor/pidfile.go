package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type pidfile struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
}

func readPidfile(path string) (pidfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return pidfile{}, err
	}
	var pf pidfile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return pidfile{}, fmt.Errorf("parse pidfile %s failed: %w", path, err)
	}
	return pf, nil
}

func writePidfile(path string, pf pidfile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir failed: %w", err)
	}
	raw, err := json.Marshal(pf)
	if err != nil {
		return fmt.Errorf("encode pidfile failed: %w", err)
	}
	// Write-then-rename keeps a concurrent status call from seeing a torn file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write pidfile failed: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename pidfile failed: %w", err)
	}
	return nil
}

func removePidfile(path string) {
	_ = os.Remove(path)
}
