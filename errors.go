package subprocess

import (
	"fmt"

	shellquote "github.com/kballard/go-shellquote"
)

// ArgumentError reports a caller-supplied command or option value with
// the wrong shape: an empty command, an empty environment entry, a
// misapplied sentinel, or input handed to Communicate without a stdin
// pipe.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string { return "subprocess: " + e.Msg }

// TimeoutError is raised when Communicate's deadline expires before the
// child exits or closes its pipes. Stdout and Stderr carry everything
// read before the deadline.
type TimeoutError struct {
	Cmd    []string
	Stdout []byte
	Stderr []byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("subprocess: command %s timed out waiting for output", quoteCmd(e.Cmd))
}

// ExitError is raised by the convenience layer (CheckCall, CheckOutput)
// when a child exits with a non-zero status or terminates abnormally.
type ExitError struct {
	Cmd    []string
	Status *ExitStatus
	Stdout []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("subprocess: command %s: %s", quoteCmd(e.Cmd), e.Status.String())
}

func quoteCmd(cmd []string) string {
	if len(cmd) == 0 {
		return "<empty>"
	}
	return shellquote.Join(cmd...)
}
