// Package supervisor starts, stops, and inspects the two API server
// processes as OS-level units. Invocations are stateless: all bookkeeping
// lives in per-service pidfiles under the state directory, and a lockfile
// serializes concurrent invocations per service so two simultaneous starts
// cannot double-spawn onto one port.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sentinelhive/internal/config"
)

type ServiceName string

const (
	ServiceClient ServiceName = "client"
	ServiceDB     ServiceName = "db"
)

// Role is the process identity passed to `svh serve`.
func (s ServiceName) Role() string {
	if s == ServiceClient {
		return "client-api"
	}
	return "db-api"
}

type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateFailed   State = "failed"
)

var (
	ErrPortConflict   = errors.New("listen address already in use")
	ErrTimedOut       = errors.New("operation timed out")
	ErrUnknownService = errors.New("unknown service")
)

type Status struct {
	Service ServiceName   `json:"service"`
	State   State         `json:"state"`
	PID     int           `json:"pid,omitempty"`
	Addr    string        `json:"addr,omitempty"`
	Uptime  time.Duration `json:"uptime,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

// SpawnFunc launches the server process for a service and returns its pid.
// Injected so tests can substitute the real detached `svh serve` spawn.
type SpawnFunc func(ctx context.Context, service ServiceName) (int, error)

type Supervisor struct {
	stateDir     string
	addrs        map[ServiceName]string
	readyTimeout time.Duration
	stopGrace    time.Duration
	lockTimeout  time.Duration
	logger       *zap.Logger
	spawn        SpawnFunc

	mu sync.Mutex
}

func New(cfg *config.Config, logger *zap.Logger) *Supervisor {
	s := &Supervisor{
		stateDir: cfg.Supervisor.StateDir,
		addrs: map[ServiceName]string{
			ServiceClient: cfg.ClientAddr(),
			ServiceDB:     cfg.DBAddr(),
		},
		readyTimeout: time.Duration(cfg.Supervisor.ReadyTimeoutSec) * time.Second,
		stopGrace:    time.Duration(cfg.Supervisor.StopGraceSec) * time.Second,
		lockTimeout:  time.Duration(cfg.Supervisor.LockTimeoutSec) * time.Second,
		logger:       logger,
	}
	s.spawn = s.spawnServe
	return s
}

// SetSpawn overrides how server processes are launched.
func (s *Supervisor) SetSpawn(spawn SpawnFunc) {
	s.spawn = spawn
}

// Services expands a selector into concrete service names.
func Services(selector string) ([]ServiceName, error) {
	switch selector {
	case "all", "":
		return []ServiceName{ServiceClient, ServiceDB}, nil
	case string(ServiceClient):
		return []ServiceName{ServiceClient}, nil
	case string(ServiceDB):
		return []ServiceName{ServiceDB}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, selector)
	}
}

// Start brings a service up if it is not already running. Calling Start on
// a running service is a successful no-op reporting the current state.
func (s *Supervisor) Start(ctx context.Context, service ServiceName) (Status, error) {
	addr, ok := s.addrs[service]
	if !ok {
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}

	unlock, err := s.acquireLock(service)
	if err != nil {
		return Status{Service: service, State: StateFailed, Reason: err.Error()}, err
	}
	defer unlock()

	if pf, err := readPidfile(s.pidfilePath(service)); err == nil && processAlive(pf.PID) {
		s.logger.Info("service already running",
			zap.String("service", string(service)),
			zap.Int("pid", pf.PID),
		)
		return Status{
			Service: service,
			State:   StateRunning,
			PID:     pf.PID,
			Addr:    pf.Addr,
			Uptime:  time.Since(pf.StartedAt),
		}, nil
	}

	// A reachable port with no live pidfile means a foreign process holds it.
	if addrReachable(addr) {
		s.logger.Error("listen address held by another process",
			zap.String("service", string(service)),
			zap.String("addr", addr),
		)
		return Status{Service: service, State: StateFailed, Addr: addr, Reason: "port conflict"}, ErrPortConflict
	}

	s.logger.Info("starting service", zap.String("service", string(service)), zap.String("addr", addr))

	pid, err := s.spawn(ctx, service)
	if err != nil {
		return Status{Service: service, State: StateFailed, Reason: err.Error()},
			fmt.Errorf("spawn %s failed: %w", service, err)
	}

	startedAt := time.Now()
	if err := writePidfile(s.pidfilePath(service), pidfile{PID: pid, Addr: addr, StartedAt: startedAt}); err != nil {
		return Status{Service: service, State: StateFailed, Reason: err.Error()}, err
	}

	if err := s.waitReady(ctx, pid, addr); err != nil {
		s.terminate(pid)
		removePidfile(s.pidfilePath(service))
		s.logger.Error("service failed to become ready",
			zap.String("service", string(service)),
			zap.Int("pid", pid),
			zap.Error(err),
		)
		return Status{Service: service, State: StateFailed, Addr: addr, Reason: err.Error()}, err
	}

	s.logger.Info("service running",
		zap.String("service", string(service)),
		zap.Int("pid", pid),
		zap.String("addr", addr),
	)
	return Status{Service: service, State: StateRunning, PID: pid, Addr: addr, Uptime: time.Since(startedAt)}, nil
}

// Stop terminates a service gracefully, escalating to SIGKILL after the
// grace period. Stopping a stopped service is a successful no-op.
func (s *Supervisor) Stop(ctx context.Context, service ServiceName) (Status, error) {
	if _, ok := s.addrs[service]; !ok {
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}

	unlock, err := s.acquireLock(service)
	if err != nil {
		return Status{Service: service, State: StateFailed, Reason: err.Error()}, err
	}
	defer unlock()

	path := s.pidfilePath(service)
	pf, err := readPidfile(path)
	if err != nil || !processAlive(pf.PID) {
		removePidfile(path)
		s.logger.Info("service not running", zap.String("service", string(service)))
		return Status{Service: service, State: StateStopped}, nil
	}

	s.logger.Info("stopping service", zap.String("service", string(service)), zap.Int("pid", pf.PID))

	_ = syscall.Kill(pf.PID, syscall.SIGTERM)
	deadline := time.Now().Add(s.stopGrace)
	for processAlive(pf.PID) {
		if time.Now().After(deadline) {
			s.logger.Warn("grace period expired, killing service",
				zap.String("service", string(service)),
				zap.Int("pid", pf.PID),
			)
			_ = syscall.Kill(pf.PID, syscall.SIGKILL)
			break
		}
		select {
		case <-ctx.Done():
			return Status{Service: service, State: StateStopping, PID: pf.PID}, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	removePidfile(path)
	s.logger.Info("service stopped", zap.String("service", string(service)))
	return Status{Service: service, State: StateStopped}, nil
}

// Status reports the observed state of a service. A pidfile pointing at a
// dead process means the service exited while expected to run.
func (s *Supervisor) Status(service ServiceName) (Status, error) {
	addr, ok := s.addrs[service]
	if !ok {
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}

	pf, err := readPidfile(s.pidfilePath(service))
	if err != nil {
		return Status{Service: service, State: StateStopped, Addr: addr}, nil
	}
	if !processAlive(pf.PID) {
		return Status{
			Service: service,
			State:   StateFailed,
			Addr:    pf.Addr,
			Reason:  "process exited unexpectedly",
		}, nil
	}
	return Status{
		Service: service,
		State:   StateRunning,
		PID:     pf.PID,
		Addr:    pf.Addr,
		Uptime:  time.Since(pf.StartedAt),
	}, nil
}

// spawnServe launches `svh serve <role>` detached from the invoking CLI,
// with its output redirected to a per-service log file.
func (s *Supervisor) spawnServe(ctx context.Context, service ServiceName) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable failed: %w", err)
	}

	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return 0, fmt.Errorf("create state dir failed: %w", err)
	}
	logFile, err := os.OpenFile(
		filepath.Join(s.stateDir, string(service)+".log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0o644,
	)
	if err != nil {
		return 0, fmt.Errorf("open server log failed: %w", err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, exe, "serve", s.roleArg(service))
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start process failed: %w", err)
	}

	pid := cmd.Process.Pid
	// Reap the child when it exits so it never lingers as a zombie of a
	// long-lived invoker.
	go func() { _ = cmd.Wait() }()
	return pid, nil
}

func (s *Supervisor) roleArg(service ServiceName) string {
	if service == ServiceClient {
		return "client"
	}
	return "db"
}

// waitReady polls until the spawned process accepts TCP connections,
// failing early when it exits.
func (s *Supervisor) waitReady(ctx context.Context, pid int, addr string) error {
	deadline := time.Now().Add(s.readyTimeout)
	for {
		if addrReachable(addr) {
			return nil
		}
		if !processAlive(pid) {
			if addrReachable(addr) {
				return nil
			}
			return errors.New("process exited before becoming ready")
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: not ready after %s", ErrTimedOut, s.readyTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (s *Supervisor) terminate(pid int) {
	_ = syscall.Kill(pid, syscall.SIGTERM)
	deadline := time.Now().Add(s.stopGrace)
	for processAlive(pid) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if processAlive(pid) {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
}

func (s *Supervisor) pidfilePath(service ServiceName) string {
	return filepath.Join(s.stateDir, string(service)+".pid")
}

func addrReachable(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 250*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// processAlive probes a pid with signal 0. EPERM still means the process
// exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
