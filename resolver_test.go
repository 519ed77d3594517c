package subprocess_test

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riftlabs/subprocess"
)

func TestStdoutToPath(t *testing.T) {
	dir := t.TempDir()
	target := dir + "/out.txt"

	p, err := subprocess.Spawn([]string{"/bin/sh", "-c", "echo hello"}, &subprocess.Options{
		Stdout: subprocess.Path(target),
	})
	require.NoError(t, err)

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))
}

func TestStdinFromPath(t *testing.T) {
	dir := t.TempDir()
	src := dir + "/in.txt"
	require.NoError(t, os.WriteFile(src, []byte("from file\n"), 0o644))

	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	defer outR.Close()

	p, err := subprocess.Spawn([]string{"/bin/cat"}, &subprocess.Options{
		Stdin:  subprocess.Path(src),
		Stdout: subprocess.File(outW),
	})
	require.NoError(t, err)
	outW.Close()

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())

	got, err := io.ReadAll(outR)
	require.NoError(t, err)
	require.Equal(t, "from file\n", string(got))
}

func TestStderrAsSTDOUTOutsideStderrIsRejected(t *testing.T) {
	_, err := subprocess.Spawn([]string{"/bin/true"}, &subprocess.Options{
		Stdin: subprocess.STDOUT,
	})
	require.Error(t, err)
	require.IsType(t, &subprocess.ArgumentError{}, err)
}

func TestFDStreamOption(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	p, err := subprocess.Spawn([]string{"/bin/sh", "-c", "echo via-fd"}, &subprocess.Options{
		Stdout: subprocess.FD(w.Fd()),
	})
	require.NoError(t, err)
	w.Close()

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Success())

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "via-fd\n", string(got))
}
