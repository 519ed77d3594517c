//go:build unix

package subprocess

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/riftlabs/subprocess/internal/xlog"
)

const drainChunk = 4096

// IncrementalFunc receives whatever was read from stdout/stderr since
// the previous delivery. Either slice may be empty but a delivery never
// fires with both empty.
type IncrementalFunc func(stdout, stderr []byte)

// CommunicateOptions configures a single Communicate call.
type CommunicateOptions struct {
	// Input is written to the child's stdin. nil means "no input, close
	// stdin immediately"; an empty non-nil slice also closes stdin before
	// the loop starts, so stdin never enters the write set and an echoing
	// child still observes EOF rather than hanging.
	Input []byte

	// Timeout bounds the call. Zero means no deadline.
	Timeout time.Duration

	// Incremental, if set, receives output as it arrives and a successful
	// Communicate returns nil stdout and stderr. On a timeout or other
	// error the returned slices (and a *TimeoutError) still carry
	// everything read so far.
	Incremental IncrementalFunc
}

// Communicate writes opts.Input to the child's stdin while concurrently
// draining stdout and stderr, cooperating with the SIGCHLD broker so the
// wait wakes promptly on child exit. See SPEC_FULL.md §4.4 for the full
// state machine this implements.
func (p *Process) Communicate(opts CommunicateOptions) (stdout, stderr []byte, err error) {
	if len(opts.Input) > 0 && p.Stdin == nil {
		return nil, nil, &ArgumentError{Msg: "communicate: input supplied but stdin is not a pipe"}
	}

	input := append([]byte(nil), opts.Input...)

	if p.Stdin != nil && opts.Input == nil {
		_ = p.Stdin.Close()
		p.Stdin = nil
	}

	var deadline time.Time
	hasDeadline := opts.Timeout > 0
	if hasDeadline {
		deadline = time.Now().Add(opts.Timeout)
	}

	selfRead, globalRead, unregister, err := globalBroker.subscribe(p.Pid)
	if err != nil {
		return nil, nil, err
	}
	defer unregister()

	if p.Stdin == nil && p.Stdout == nil && p.Stderr == nil {
		return nil, nil, p.waitWithDeadline(selfRead, globalRead, deadline, hasDeadline)
	}

	stdoutFile, stderrFile := p.Stdout, p.Stderr
	if stdoutFile != nil {
		_ = unix.SetNonblock(int(stdoutFile.Fd()), true)
	}
	if stderrFile != nil {
		_ = unix.SetNonblock(int(stderrFile.Fd()), true)
	}
	if p.Stdin != nil {
		_ = unix.SetNonblock(int(p.Stdin.Fd()), true)

		// Empty-string contract: nothing to write, so stdin closes here,
		// before the write set below is ever computed, rather than being
		// left open for the loop to discover has no work.
		if len(input) == 0 {
			_ = p.Stdin.Close()
			p.Stdin = nil
		}
	}

	writePending := p.Stdin != nil && len(input) > 0
	remaining := input

	var outBuf, errBuf []byte
	var outSince, errSince []byte

	deliver := func() {
		if opts.Incremental == nil {
			return
		}
		if len(outSince) == 0 && len(errSince) == 0 {
			return
		}
		opts.Incremental(outSince, errSince)
		outSince, errSince = nil, nil
	}

	for {
		if status, perr := p.Poll(); perr == nil && status != nil {
			xlog.Debugf("communicate: child exited, draining final pass")
			if stdoutFile != nil {
				drainInto(&outBuf, &outSince, stdoutFile, &stdoutFile)
			}
			if stderrFile != nil {
				drainInto(&errBuf, &errSince, stderrFile, &stderrFile)
			}
			deliver()
			break
		}

		var rfds, wfds unix.FdSet
		fdZero(&rfds)
		fdZero(&wfds)
		maxFd := 0

		addRead := func(f *os.File) {
			if f == nil {
				return
			}
			fd := int(f.Fd())
			fdSet(fd, &rfds)
			if fd > maxFd {
				maxFd = fd
			}
		}
		addRead(stdoutFile)
		addRead(stderrFile)
		addRead(selfRead)
		addRead(globalRead)

		if writePending {
			fd := int(p.Stdin.Fd())
			fdSet(fd, &wfds)
			if fd > maxFd {
				maxFd = fd
			}
		}

		var tv *unix.Timeval
		if hasDeadline {
			remain := time.Until(deadline)
			if remain < 0 {
				remain = 0
			}
			t := unix.NsecToTimeval(remain.Nanoseconds())
			tv = &t
		}

		n, selErr := unix.Select(maxFd+1, &rfds, &wfds, nil, tv)
		if selErr != nil {
			if selErr == unix.EINTR {
				continue
			}
			return outBuf, errBuf, errors.Wrap(selErr, "subprocess: select")
		}
		if n == 0 {
			return outBuf, errBuf, &TimeoutError{Cmd: p.Command, Stdout: outBuf, Stderr: errBuf}
		}

		if stdoutFile != nil && fdIsSet(int(stdoutFile.Fd()), &rfds) {
			drainInto(&outBuf, &outSince, stdoutFile, &stdoutFile)
		}
		if stderrFile != nil && fdIsSet(int(stderrFile.Fd()), &rfds) {
			drainInto(&errBuf, &errSince, stderrFile, &stderrFile)
		}
		if fdIsSet(int(globalRead.Fd()), &rfds) {
			drainDiscard(globalRead)
			globalBroker.wakeupAll()
		}
		if fdIsSet(int(selfRead.Fd()), &rfds) {
			drainDiscard(selfRead)
		}
		if writePending && fdIsSet(int(p.Stdin.Fd()), &wfds) {
			written, werr := unix.Write(int(p.Stdin.Fd()), remaining)
			switch {
			case werr == nil:
				remaining = remaining[written:]
				if len(remaining) == 0 {
					_ = p.Stdin.Close()
					p.Stdin = nil
					writePending = false
				}
			case werr == unix.EAGAIN || werr == unix.EINTR:
				// spurious-writable or interrupted: no progress this round
			case werr == unix.EPIPE:
				_ = p.Stdin.Close()
				p.Stdin = nil
				writePending = false
			default:
				return outBuf, errBuf, errors.Wrap(werr, "subprocess: write stdin")
			}
		}

		deliver()
	}

	if _, werr := p.Wait(); werr != nil {
		return outBuf, errBuf, werr
	}

	if opts.Incremental != nil {
		return nil, nil, nil
	}
	return outBuf, errBuf, nil
}

// waitWithDeadline services the no-pipe fast path: nothing to drain or
// write, so the loop only has to wake up on SIGCHLD (via selfRead or
// globalRead) or the deadline, whichever comes first.
func (p *Process) waitWithDeadline(selfRead, globalRead *os.File, deadline time.Time, hasDeadline bool) error {
	for {
		if status, perr := p.Poll(); perr == nil && status != nil {
			return nil
		}

		var rfds unix.FdSet
		fdZero(&rfds)
		maxFd := int(selfRead.Fd())
		fdSet(maxFd, &rfds)
		if fd := int(globalRead.Fd()); fd > maxFd {
			maxFd = fd
		}
		fdSet(int(globalRead.Fd()), &rfds)

		var tv *unix.Timeval
		if hasDeadline {
			remain := time.Until(deadline)
			if remain < 0 {
				remain = 0
			}
			t := unix.NsecToTimeval(remain.Nanoseconds())
			tv = &t
		}

		n, selErr := unix.Select(maxFd+1, &rfds, nil, nil, tv)
		if selErr != nil {
			if selErr == unix.EINTR {
				continue
			}
			return errors.Wrap(selErr, "subprocess: select")
		}
		if n == 0 {
			return &TimeoutError{Cmd: p.Command}
		}

		if fdIsSet(int(globalRead.Fd()), &rfds) {
			drainDiscard(globalRead)
			globalBroker.wakeupAll()
		}
		if fdIsSet(int(selfRead.Fd()), &rfds) {
			drainDiscard(selfRead)
		}
	}
}

// drainInto performs repeated non-blocking reads of f into both the
// call-lifetime accumulator and the since-last-delivery accumulator,
// until the read would block, hits EOF, or fails. On EOF or any error
// other than EAGAIN/EINTR it closes f and clears *slot, removing it from
// future wait sets.
func drainInto(acc, since *[]byte, f *os.File, slot **os.File) {
	buf := make([]byte, drainChunk)
	for {
		n, err := unix.Read(int(f.Fd()), buf)
		switch {
		case n > 0:
			*acc = append(*acc, buf[:n]...)
			*since = append(*since, buf[:n]...)
			if n < len(buf) {
				return
			}
		case err == nil:
			// n == 0, err == nil: EOF
			_ = f.Close()
			*slot = nil
			return
		case err == unix.EAGAIN:
			return
		case err == unix.EINTR:
			continue
		default:
			_ = f.Close()
			*slot = nil
			return
		}
	}
}

// drainDiscard empties a pure wakeup pipe (self-pipe or global pipe)
// without keeping any of the bytes.
func drainDiscard(f *os.File) {
	buf := make([]byte, drainChunk)
	for {
		n, err := unix.Read(int(f.Fd()), buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n < len(buf) {
			return
		}
	}
}
