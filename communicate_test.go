package subprocess_test

import (
	"bytes"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riftlabs/subprocess"
)

func TestCommunicateRoundTripsOneMebibyte(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1<<20)

	p, err := subprocess.Spawn([]string{"/bin/cat"}, &subprocess.Options{
		Stdin:  subprocess.PIPE,
		Stdout: subprocess.PIPE,
	})
	require.NoError(t, err)

	stdout, stderr, err := p.Communicate(subprocess.CommunicateOptions{Input: payload})
	require.NoError(t, err)
	require.Empty(t, stderr)
	require.Equal(t, payload, stdout)

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())
}

func TestCommunicateEmptyInputClosesStdin(t *testing.T) {
	p, err := subprocess.Spawn([]string{"/bin/cat"}, &subprocess.Options{
		Stdin:  subprocess.PIPE,
		Stdout: subprocess.PIPE,
	})
	require.NoError(t, err)

	stdout, _, err := p.Communicate(subprocess.CommunicateOptions{Input: []byte{}})
	require.NoError(t, err)
	require.Empty(t, stdout)

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())
}

func TestCommunicateTimeoutThenResume(t *testing.T) {
	script := "trap 'echo resumed; exit 0' HUP; echo waiting >&2; sleep 5"
	p, err := subprocess.Spawn([]string{"/bin/sh", "-c", script}, &subprocess.Options{
		Stdout: subprocess.PIPE,
		Stderr: subprocess.PIPE,
	})
	require.NoError(t, err)

	_, _, err = p.Communicate(subprocess.CommunicateOptions{Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	var timeoutErr *subprocess.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Contains(t, string(timeoutErr.Stderr), "waiting")

	require.NoError(t, p.SendSignal(syscall.SIGHUP))

	stdout, _, err := p.Communicate(subprocess.CommunicateOptions{})
	require.NoError(t, err)
	require.Contains(t, string(stdout), "resumed")

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())
}

func TestCommunicatePrematureStdinClose(t *testing.T) {
	p, err := subprocess.Spawn([]string{"/bin/sh", "-c", "exec 0<&-; echo done"}, &subprocess.Options{
		Stdin:  subprocess.PIPE,
		Stdout: subprocess.PIPE,
	})
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("y"), 1<<16)
	stdout, _, err := p.Communicate(subprocess.CommunicateOptions{Input: payload})
	require.NoError(t, err)
	require.Contains(t, string(stdout), "done")

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())
}

func TestCommunicateNoPipesFastPath(t *testing.T) {
	p, err := subprocess.Spawn([]string{"/bin/true"}, nil)
	require.NoError(t, err)

	stdout, stderr, err := p.Communicate(subprocess.CommunicateOptions{})
	require.NoError(t, err)
	require.Nil(t, stdout)
	require.Nil(t, stderr)

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())
}

func TestCommunicateNoPipesRespectsTimeout(t *testing.T) {
	p, err := subprocess.Spawn([]string{"/bin/sh", "-c", "sleep 5"}, nil)
	require.NoError(t, err)

	_, _, err = p.Communicate(subprocess.CommunicateOptions{Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	var timeoutErr *subprocess.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)

	require.NoError(t, p.Terminate())
	_, err = p.Wait()
	require.NoError(t, err)
}

func TestCommunicateInputWithoutStdinPipeIsArgumentError(t *testing.T) {
	p, err := subprocess.Spawn([]string{"/bin/true"}, nil)
	require.NoError(t, err)

	_, _, err = p.Communicate(subprocess.CommunicateOptions{Input: []byte("x")})
	require.Error(t, err)
	require.IsType(t, &subprocess.ArgumentError{}, err)
}

func TestCommunicateIncrementalDelivery(t *testing.T) {
	p, err := subprocess.Spawn([]string{"/bin/sh", "-c", "echo one; sleep 0.1; echo two"}, &subprocess.Options{
		Stdout: subprocess.PIPE,
	})
	require.NoError(t, err)

	var chunks [][]byte
	_, _, err = p.Communicate(subprocess.CommunicateOptions{
		Incremental: func(stdout, stderr []byte) {
			if len(stdout) > 0 {
				chunks = append(chunks, append([]byte(nil), stdout...))
			}
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())
}

func TestCommunicateConcurrentCallsDoNotCollide(t *testing.T) {
	pA, err := subprocess.Spawn([]string{"/bin/sh", "-c", "sleep 0.3"}, nil)
	require.NoError(t, err)
	pB, err := subprocess.Spawn([]string{"/bin/sh", "-c", "sleep 0.3"}, nil)
	require.NoError(t, err)

	type result struct {
		err error
	}
	results := make(chan result, 2)
	for _, p := range []*subprocess.Process{pA, pB} {
		go func(p *subprocess.Process) {
			_, _, err := p.Communicate(subprocess.CommunicateOptions{Timeout: 2 * time.Second})
			results <- result{err: err}
		}(p)
	}

	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
	}

	statusA, err := pA.Wait()
	require.NoError(t, err)
	require.True(t, statusA.Success())

	statusB, err := pB.Wait()
	require.NoError(t, err)
	require.True(t, statusB.Success())
}

func TestCommunicateMergesStderrIntoStdout(t *testing.T) {
	p, err := subprocess.Spawn([]string{"/bin/sh", "-c", "echo out; echo err >&2"}, &subprocess.Options{
		Stdout: subprocess.PIPE,
		Stderr: subprocess.STDOUT,
	})
	require.NoError(t, err)

	stdout, stderr, err := p.Communicate(subprocess.CommunicateOptions{})
	require.NoError(t, err)
	require.Nil(t, stderr)
	require.Contains(t, string(stdout), "out")
	require.Contains(t, string(stdout), "err")

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())
}
