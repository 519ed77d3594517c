//go:build unix

package subprocess

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitStatus records how a child terminated. Exactly one of Exited,
// Signaled or Stopped is true, and it never changes once observed.
type ExitStatus struct {
	raw syscall.WaitStatus
}

func newExitStatus(ws syscall.WaitStatus) *ExitStatus { return &ExitStatus{raw: ws} }

// Exited reports whether the child ran to completion and returned an
// exit code.
func (s *ExitStatus) Exited() bool { return s.raw.Exited() }

// ExitCode returns the child's exit code. Only meaningful when Exited.
func (s *ExitStatus) ExitCode() int { return s.raw.ExitStatus() }

// Signaled reports whether the child was killed by a signal.
func (s *ExitStatus) Signaled() bool { return s.raw.Signaled() }

// Signal returns the signal that killed the child. Only meaningful when
// Signaled.
func (s *ExitStatus) Signal() syscall.Signal { return s.raw.Signal() }

// Stopped reports whether the child is stopped (not terminated) by a
// signal, as seen through a WUNTRACED-style wait.
func (s *ExitStatus) Stopped() bool { return s.raw.Stopped() }

// StopSignal returns the signal that stopped the child. Only meaningful
// when Stopped.
func (s *ExitStatus) StopSignal() syscall.Signal { return s.raw.StopSignal() }

// Success reports whether the child exited with status 0.
func (s *ExitStatus) Success() bool { return s.Exited() && s.ExitCode() == 0 }

func (s *ExitStatus) String() string {
	str, err := FormatStatus(s, false)
	if err != nil {
		return "unknown status"
	}
	return str
}

// FormatStatus renders a human-readable description of status: "exited
// with status N", "killed by signal K" or "stopped by signal K". When
// convertHighExit is true and the exit code is greater than 128, a
// parenthetical guess at the originating signal is appended, mirroring
// shells that encode "killed by signal N" as exit code 128+N.
func FormatStatus(status *ExitStatus, convertHighExit bool) (string, error) {
	if status == nil {
		return "", &ArgumentError{Msg: "format_status: nil status"}
	}

	switch {
	case status.Exited():
		msg := fmt.Sprintf("exited with status %d", status.ExitCode())
		if convertHighExit && status.ExitCode() > 128 {
			if name, ok := signalName(syscall.Signal(status.ExitCode() - 128)); ok {
				msg += fmt.Sprintf(" (maybe SIG%s)", name)
			}
		}
		return msg, nil
	case status.Signaled():
		return fmt.Sprintf("killed by signal %s", signalLabel(status.Signal())), nil
	case status.Stopped():
		return fmt.Sprintf("stopped by signal %s", signalLabel(status.StopSignal())), nil
	default:
		return "", &ArgumentError{Msg: "format_status: status reports neither exit, signal nor stop"}
	}
}

func signalLabel(sig syscall.Signal) string {
	if name, ok := signalName(sig); ok {
		return name
	}
	return fmt.Sprintf("%d", int(sig))
}

var signalNames = map[syscall.Signal]string{
	unix.SIGHUP:  "HUP",
	unix.SIGINT:  "INT",
	unix.SIGQUIT: "QUIT",
	unix.SIGILL:  "ILL",
	unix.SIGTRAP: "TRAP",
	unix.SIGABRT: "ABRT",
	unix.SIGFPE:  "FPE",
	unix.SIGKILL: "KILL",
	unix.SIGSEGV: "SEGV",
	unix.SIGPIPE: "PIPE",
	unix.SIGALRM: "ALRM",
	unix.SIGTERM: "TERM",
	unix.SIGUSR1: "USR1",
	unix.SIGUSR2: "USR2",
	unix.SIGCHLD: "CHLD",
	unix.SIGCONT: "CONT",
	unix.SIGSTOP: "STOP",
	unix.SIGTSTP: "TSTP",
	unix.SIGTTIN: "TTIN",
	unix.SIGTTOU: "TTOU",
}

func signalName(sig syscall.Signal) (string, bool) {
	name, ok := signalNames[sig]
	return name, ok
}
