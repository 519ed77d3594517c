package subprocess_test

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riftlabs/subprocess"
)

func TestFormatStatusExited(t *testing.T) {
	p, err := subprocess.Spawn([]string{"/bin/sh", "-c", "exit 0"}, nil)
	require.NoError(t, err)

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())

	msg, err := subprocess.FormatStatus(status, false)
	require.NoError(t, err)
	require.Equal(t, "exited with status 0", msg)
}

func TestFormatStatusNonZero(t *testing.T) {
	p, err := subprocess.Spawn([]string{"/bin/sh", "-c", "exit 3"}, nil)
	require.NoError(t, err)

	status, err := p.Wait()
	require.NoError(t, err)
	require.False(t, status.Success())

	msg, err := subprocess.FormatStatus(status, false)
	require.NoError(t, err)
	require.Equal(t, "exited with status 3", msg)
}

func TestFormatStatusSignaled(t *testing.T) {
	p, err := subprocess.Spawn([]string{"/bin/sh", "-c", "kill -TERM $$; sleep 5"}, nil)
	require.NoError(t, err)

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Signaled())
	require.Equal(t, syscall.SIGTERM, status.Signal())

	msg, err := subprocess.FormatStatus(status, false)
	require.NoError(t, err)
	require.Equal(t, "killed by signal TERM", msg)
}

func TestFormatStatusNilIsArgumentError(t *testing.T) {
	_, err := subprocess.FormatStatus(nil, false)
	require.Error(t, err)
	require.IsType(t, &subprocess.ArgumentError{}, err)
}
