package supervisor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sentinelhive/internal/config"
)

// deadPID is above the default linux pid_max, so no live process can own it.
const deadPID = 99999999

func freeAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func newTestSupervisor(t *testing.T, clientAddr string) *Supervisor {
	t.Helper()

	host, portStr, err := net.SplitHostPort(clientAddr)
	require.NoError(t, err)
	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.ClientHost = host
	cfg.App.ClientPort = port
	cfg.App.DBHost = host
	cfg.App.DBPort = port + 1
	cfg.Supervisor.StateDir = t.TempDir()
	cfg.Supervisor.ReadyTimeoutSec = 2
	cfg.Supervisor.StopGraceSec = 2
	cfg.Supervisor.LockTimeoutSec = 2

	return New(cfg, zap.NewNop())
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	sup := newTestSupervisor(t, addr)

	spawnCalls := 0
	sup.SetSpawn(func(_ context.Context, _ ServiceName) (int, error) {
		spawnCalls++
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return 0, err
		}
		t.Cleanup(func() { _ = l.Close() })
		return os.Getpid(), nil
	})

	ctx := context.Background()

	status, err := sup.Start(ctx, ServiceClient)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, status.State)
	assert.Equal(t, 1, spawnCalls)

	// Second start: no-op success, no second spawn.
	status, err = sup.Start(ctx, ServiceClient)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, status.State)
	assert.Equal(t, 1, spawnCalls)
}

func TestStartReportsPortConflict(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	sup := newTestSupervisor(t, addr)

	l, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	defer l.Close()

	spawnCalls := 0
	sup.SetSpawn(func(_ context.Context, _ ServiceName) (int, error) {
		spawnCalls++
		return os.Getpid(), nil
	})

	status, err := sup.Start(context.Background(), ServiceClient)
	assert.ErrorIs(t, err, ErrPortConflict)
	assert.Equal(t, StateFailed, status.State)
	assert.Zero(t, spawnCalls)
}

func TestStartFailsWhenProcessExitsEarly(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, freeAddr(t))
	sup.SetSpawn(func(_ context.Context, _ ServiceName) (int, error) {
		return deadPID, nil
	})

	status, err := sup.Start(context.Background(), ServiceClient)
	require.Error(t, err)
	assert.Equal(t, StateFailed, status.State)

	// The failed start leaves no stale pidfile behind.
	status, err = sup.Status(ServiceClient)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, status.State)
}

func TestStopNeverStartedIsNoOp(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, freeAddr(t))

	status, err := sup.Stop(context.Background(), ServiceClient)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, status.State)
}

func TestStopTerminatesProcess(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, freeAddr(t))

	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	go func() { _ = cmd.Wait() }()

	require.NoError(t, writePidfile(sup.pidfilePath(ServiceClient), pidfile{
		PID:       pid,
		Addr:      "127.0.0.1:0",
		StartedAt: time.Now(),
	}))

	status, err := sup.Stop(context.Background(), ServiceClient)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, status.State)

	require.Eventually(t, func() bool { return !processAlive(pid) }, 3*time.Second, 50*time.Millisecond)

	status, err = sup.Status(ServiceClient)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, status.State)
}

func TestStatusReportsCrashAsFailed(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, freeAddr(t))

	require.NoError(t, writePidfile(sup.pidfilePath(ServiceClient), pidfile{
		PID:       deadPID,
		Addr:      "127.0.0.1:1234",
		StartedAt: time.Now().Add(-time.Minute),
	}))

	status, err := sup.Status(ServiceClient)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, "process exited unexpectedly", status.Reason)
}

func TestStatusStoppedWithoutPidfile(t *testing.T) {
	t.Parallel()

	sup := newTestSupervisor(t, freeAddr(t))

	status, err := sup.Status(ServiceDB)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, status.State)
}

func TestServicesSelector(t *testing.T) {
	t.Parallel()

	both, err := Services("all")
	require.NoError(t, err)
	assert.Equal(t, []ServiceName{ServiceClient, ServiceDB}, both)

	client, err := Services("client")
	require.NoError(t, err)
	assert.Equal(t, []ServiceName{ServiceClient}, client)

	_, err = Services("bogus")
	assert.ErrorIs(t, err, ErrUnknownService)
}
