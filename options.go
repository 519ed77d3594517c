package subprocess

import "syscall"

// Options configures a Spawn call. The zero value inherits all three
// standard streams, runs in the parent's working directory with the
// parent's environment, and retains no extra descriptors.
type Options struct {
	// Stdin, Stdout, Stderr select how the corresponding stream is wired.
	// nil means inherit.
	Stdin  *StreamOption
	Stdout *StreamOption
	Stderr *StreamOption

	// Dir is the child's working directory. Empty means the parent's.
	Dir string

	// Env is the child's full environment, "KEY=VALUE" per entry. nil
	// means inherit the parent's environment unchanged.
	Env []string

	// RetainFDs lists descriptors the caller wants to survive exec even
	// though the library was not told to use them for a stream.
	RetainFDs []uintptr

	// SysProcAttr carries low-level exec refinements (process group,
	// credentials, namespaces, ...), merged in after the library's own
	// descriptor and close-on-exec setup.
	SysProcAttr *syscall.SysProcAttr

	// PreExec, when set, runs in the parent immediately before fork, with
	// Dir already known. It may adjust SysProcAttr but cannot run in the
	// child between fork and exec — the Go runtime does not allow
	// arbitrary code to run safely there. See DESIGN.md, Open Question 1.
	PreExec func() error
}
