//go:build unix

package subprocess

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"

	"github.com/riftlabs/subprocess/internal/xlog"
)

// Spawn resolves opts, forks and execs cmd[0] with cmd as argv, and
// returns a live Process. See SPEC_FULL.md §4.2 for the full contract.
func Spawn(cmd []string, opts *Options) (*Process, error) {
	if len(cmd) == 0 || cmd[0] == "" {
		return nil, &ArgumentError{Msg: "spawn: command must have at least one non-empty argument"}
	}
	for _, kv := range cmd {
		if kv == "" {
			return nil, &ArgumentError{Msg: "spawn: command arguments must be non-empty strings"}
		}
	}

	if opts == nil {
		opts = &Options{}
	}
	for _, kv := range opts.Env {
		if kv == "" {
			return nil, &ArgumentError{Msg: "spawn: environment entries must be non-empty KEY=VALUE strings"}
		}
	}

	stdinRes, err := resolveStream(opts.Stdin, dirRead)
	if err != nil {
		return nil, err
	}
	stdoutRes, err := resolveStream(opts.Stdout, dirWrite)
	if err != nil {
		closeOwned(stdinRes)
		return nil, err
	}

	mergeStderr := opts.Stderr != nil && opts.Stderr.kind == streamMergeStdout
	var stderrRes *resolvedStream
	if mergeStderr {
		stderrRes = &resolvedStream{}
	} else {
		stderrRes, err = resolveStream(opts.Stderr, dirWrite)
		if err != nil {
			closeOwned(stdinRes, stdoutRes)
			return nil, err
		}
	}

	if opts.PreExec != nil {
		if err := opts.PreExec(); err != nil {
			closeOwned(stdinRes, stdoutRes, stderrRes)
			return nil, errors.Wrap(err, "subprocess: preexec")
		}
	}

	argv0, err := exec.LookPath(cmd[0])
	if err != nil {
		closeOwned(stdinRes, stdoutRes, stderrRes)
		return nil, classifySpawnError(cmd[0], err)
	}

	files := buildChildFiles(stdinRes, stdoutRes, stderrRes, mergeStderr, opts.RetainFDs)

	sys := opts.SysProcAttr
	if sys == nil {
		sys = &syscall.SysProcAttr{}
	}

	attr := &syscall.ProcAttr{
		Dir:   opts.Dir,
		Env:   opts.Env,
		Files: files,
		Sys:   sys,
	}

	pid, err := syscall.ForkExec(argv0, cmd, attr)
	closeOwned(stdinRes, stdoutRes, stderrRes)
	if err != nil {
		return nil, classifySpawnError(cmd[0], err)
	}

	xlog.Debugf("spawn: started pid %d: %v", pid, cmd)

	return &Process{
		Command: cmd,
		Pid:     pid,
		Stdin:   stdinRes.parent,
		Stdout:  stdoutRes.parent,
		Stderr:  stderrRes.parent,
	}, nil
}

// closedFD is the ProcAttr.Files sentinel that tells the runtime's
// fork/dup2/close sequence to leave descriptor i closed in the child
// rather than map anything onto it. syscall.ForkExec treats Files[i] as
// the target descriptor number i itself (the same mechanism
// os/exec.Cmd.ExtraFiles relies on to land its extras at 3, 4, ...) and
// special-cases Files[i] == uintptr(i) as "already in place, just clear
// close-on-exec" rather than dup2'ing — which is exactly what a
// retained fd needs to stay at its caller-chosen number instead of
// being renumbered.
const closedFD = ^uintptr(0)

// buildChildFiles lays out the ProcAttr.Files slice so that stdin,
// stdout and stderr land at 0, 1, 2 and every fd in retain lands at its
// own original number rather than wherever the next free slot happens
// to be. Every index in between that nothing claims is set to closedFD
// so it stays closed in the child, matching the "retained fds only"
// contract.
func buildChildFiles(stdinRes, stdoutRes, stderrRes *resolvedStream, mergeStderr bool, retain []uintptr) []uintptr {
	maxFd := 2
	for _, fd := range retain {
		if int(fd) > maxFd {
			maxFd = int(fd)
		}
	}

	files := make([]uintptr, maxFd+1)
	for i := range files {
		files[i] = closedFD
	}

	files[0] = childFd(stdinRes, os.Stdin)
	files[1] = childFd(stdoutRes, os.Stdout)
	if mergeStderr {
		files[2] = files[1]
	} else {
		files[2] = childFd(stderrRes, os.Stderr)
	}

	for _, fd := range retain {
		files[fd] = fd
	}

	return files
}

func childFd(res *resolvedStream, fallback *os.File) uintptr {
	if res != nil && res.child != nil {
		return res.child.Fd()
	}
	return fallback.Fd()
}

func closeOwned(streams ...*resolvedStream) {
	for _, s := range streams {
		if s != nil && s.ownedByUs && s.child != nil {
			_ = s.child.Close()
		}
	}
}
