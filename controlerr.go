//go:build unix

package subprocess

import (
	"os"

	"github.com/pkg/errors"
)

// classifySpawnError annotates the error syscall.ForkExec returns when
// the child's own exec(2) fails. The Go runtime's fork/exec helper
// already recovers this failure through its own close-on-exec control
// pipe between the forked child and the parent, so this function only
// attaches the failing program's name to the error the runtime already
// produced, without inventing a parallel raw fork() path that would be
// unsafe to run arbitrary Go code inside (see DESIGN.md).
func classifySpawnError(name string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*os.PathError); ok {
		return errors.Wrapf(err, "subprocess: exec %s", name)
	}
	return errors.Wrapf(err, "subprocess: spawn %s", name)
}
