//go:build unix

package subprocess

import (
	"os"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/riftlabs/subprocess/internal/xlog"
)

// Process is a live or exited child created by Spawn. Stdin, Stdout and
// Stderr are present iff the corresponding option resolved to a pipe the
// parent retains; they are nil when the stream was inherited or fully
// delegated to the child.
type Process struct {
	Command []string
	Pid     int

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	mu     sync.Mutex
	status *ExitStatus
}

func (p *Process) setStatus(ws syscall.WaitStatus) *ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		p.status = newExitStatus(ws)
	}
	return p.status
}

// ExitStatus returns the status recorded by a prior Wait or Poll, or nil
// if the child has not yet been reaped.
func (p *Process) ExitStatus() *ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// ignoringEINTR retries fn, which must wrap a single blocking or
// non-blocking syscall, for as long as it reports EINTR. Unlike the
// bounded retries used for resolver opens and broker pipe creation, a
// syscall interrupted by a signal must always be retried, never given up
// on, so this loop has no attempt limit.
func ignoringEINTR(fn func() error) error {
	for {
		err := fn()
		if err != unix.EINTR {
			return err
		}
	}
}

// Poll checks, without blocking, whether the child has exited.
func (p *Process) Poll() (*ExitStatus, error) {
	if s := p.ExitStatus(); s != nil {
		return s, nil
	}

	var ws syscall.WaitStatus
	var wpid int
	err := ignoringEINTR(func() error {
		var werr error
		wpid, werr = syscall.Wait4(p.Pid, &ws, syscall.WNOHANG, nil)
		return werr
	})
	if err != nil {
		return nil, errors.Wrap(err, "subprocess: poll")
	}
	if wpid == 0 {
		return nil, nil
	}

	return p.setStatus(ws), nil
}

// Wait blocks until the child exits, then returns its status.
func (p *Process) Wait() (*ExitStatus, error) {
	if s := p.ExitStatus(); s != nil {
		return s, nil
	}

	var ws syscall.WaitStatus
	err := ignoringEINTR(func() error {
		_, werr := syscall.Wait4(p.Pid, &ws, 0, nil)
		return werr
	})
	if err != nil {
		return nil, errors.Wrap(err, "subprocess: wait")
	}

	return p.setStatus(ws), nil
}

// SendSignal delivers sig to the child. Safe to call from any thread.
func (p *Process) SendSignal(sig syscall.Signal) error {
	if err := syscall.Kill(p.Pid, sig); err != nil {
		return errors.Wrapf(err, "subprocess: signal pid %d", p.Pid)
	}
	xlog.Debugf("process: sent signal %v to pid %d", sig, p.Pid)
	return nil
}

// Terminate is equivalent to SendSignal(syscall.SIGTERM).
func (p *Process) Terminate() error {
	return p.SendSignal(syscall.SIGTERM)
}
