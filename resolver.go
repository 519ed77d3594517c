//go:build unix

package subprocess

import (
	"fmt"
	"os"
	"syscall"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/riftlabs/subprocess/internal/xlog"
)

// direction says which way data flows across a resolved stream, from the
// child's point of view: dirRead means the child reads from it (stdin),
// dirWrite means the child writes to it (stdout/stderr).
type direction int

const (
	dirRead direction = iota
	dirWrite
)

// resolvedStream is what the Resolver hands the Spawner: the fd the
// child will see, the fd (if any) the parent retains, and whether the
// library itself opened the child end and must therefore close it in
// the parent after fork.
type resolvedStream struct {
	child     *os.File
	parent    *os.File
	ownedByUs bool
}

// resolveStream interprets one stdin/stdout/stderr option. It performs
// no I/O beyond opening a Path option, and it never touches a child
// process — none exists yet.
func resolveStream(opt *StreamOption, dir direction) (*resolvedStream, error) {
	if opt == nil {
		return &resolvedStream{}, nil
	}

	switch opt.kind {
	case streamPipe:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, errors.Wrap(err, "subprocess: create pipe")
		}
		if dir == dirRead {
			return &resolvedStream{child: r, parent: w, ownedByUs: true}, nil
		}
		return &resolvedStream{child: w, parent: r, ownedByUs: true}, nil

	case streamMergeStdout:
		return nil, &ArgumentError{Msg: "STDOUT sentinel is only valid as the Stderr option"}

	case streamFD:
		// The child gets a close-on-exec duplicate owned by the library, so
		// no *os.File (and its finalizer) ever wraps the caller's own fd.
		syscall.ForkLock.RLock()
		dupFd, err := unix.Dup(int(opt.fd))
		if err == nil {
			unix.CloseOnExec(dupFd)
		}
		syscall.ForkLock.RUnlock()
		if err != nil {
			return nil, &ArgumentError{Msg: fmt.Sprintf("invalid file descriptor %d", opt.fd)}
		}
		return &resolvedStream{child: os.NewFile(uintptr(dupFd), fmt.Sprintf("fd %d", opt.fd)), ownedByUs: true}, nil

	case streamFile:
		if opt.file == nil {
			return nil, &ArgumentError{Msg: "nil file handle"}
		}
		return &resolvedStream{child: opt.file}, nil

	case streamPath:
		return resolvePath(opt.path, dir)

	default:
		return nil, &ArgumentError{Msg: fmt.Sprintf("unrecognized stream option %d", opt.kind)}
	}
}

// resolvePath opens name for the child, retrying a bounded number of
// times if open(2) is interrupted — a real possibility since this
// library installs its own SIGCHLD relay elsewhere in the process.
func resolvePath(name string, dir direction) (*resolvedStream, error) {
	flag := os.O_RDONLY
	if dir == dirWrite {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	var f *os.File
	var openErr error
	_ = retry.Retry(func(attempt uint) error {
		f, openErr = os.OpenFile(name, flag, 0o644)
		if openErr != nil && errors.Is(openErr, unix.EINTR) {
			return openErr
		}
		return nil
	}, strategy.Limit(3))

	if openErr != nil {
		return nil, errors.Wrapf(openErr, "subprocess: open %s", name)
	}

	xlog.Debugf("resolver: opened path %s for child", name)
	return &resolvedStream{child: f, ownedByUs: true}, nil
}
