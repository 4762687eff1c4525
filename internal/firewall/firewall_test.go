package firewall

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	name string
	args []string
}

func newRecordingController(out []byte, err error, useSudo bool) (*Controller, *[]call) {
	calls := &[]call{}
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, call{name: name, args: args})
		return out, err
	}
	return NewControllerWithRunner(run, useSudo, zap.NewNop()), calls
}

func TestActiveParsesStatus(t *testing.T) {
	t.Parallel()

	ctrl, _ := newRecordingController([]byte("Status: active\n\nTo  Action  From\n"), nil, false)
	active, err := ctrl.Active(context.Background())
	require.NoError(t, err)
	assert.True(t, active)

	ctrl, _ = newRecordingController([]byte("Status: inactive\n"), nil, false)
	active, err = ctrl.Active(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestActiveUnexpectedOutput(t *testing.T) {
	t.Parallel()

	ctrl, _ := newRecordingController([]byte("garbage"), nil, false)
	_, err := ctrl.Active(context.Background())
	assert.Error(t, err)
}

func TestPermissionDeniedIsDistinct(t *testing.T) {
	t.Parallel()

	ctrl, _ := newRecordingController(
		[]byte("ERROR: You need to be root to run this script"),
		errors.New("exit status 1: permission denied"),
		false,
	)
	err := ctrl.Enable(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSudoPrefixesCommand(t *testing.T) {
	t.Parallel()

	ctrl, calls := newRecordingController([]byte(""), nil, true)
	require.NoError(t, ctrl.OpenPort(context.Background(), 8000, "tcp"))

	require.Len(t, *calls, 1)
	assert.Equal(t, "sudo", (*calls)[0].name)
	assert.Equal(t, []string{"-n", "ufw", "allow", "8000/tcp"}, (*calls)[0].args)
}

func TestClosePortDefaultsProto(t *testing.T) {
	t.Parallel()

	ctrl, calls := newRecordingController([]byte(""), nil, false)
	require.NoError(t, ctrl.ClosePort(context.Background(), 8001, ""))

	require.Len(t, *calls, 1)
	assert.Equal(t, "ufw", (*calls)[0].name)
	assert.Equal(t, []string{"delete", "allow", "8001/tcp"}, (*calls)[0].args)
}

func TestCommandFailureSurfaces(t *testing.T) {
	t.Parallel()

	ctrl, _ := newRecordingController([]byte("ERROR: Bad port"), errors.New("exit status 1"), false)
	err := ctrl.OpenPort(context.Background(), 0, "tcp")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
}
