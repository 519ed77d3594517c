package subprocess

import "os"

type streamKind int

const (
	streamInherit streamKind = iota
	streamPipe
	streamMergeStdout
	streamFD
	streamFile
	streamPath
)

// StreamOption selects how one of a child's standard streams is wired
// up. The zero value (nil *StreamOption) means inherit. Construct one
// with PIPE, STDOUT, FD, File or Path.
type StreamOption struct {
	kind streamKind
	file *os.File
	fd   uintptr
	path string
}

// PIPE requests a freshly created pipe between parent and child. For
// Stdin the child receives the read end and the parent keeps the write
// end; for Stdout/Stderr the roles are reversed.
var PIPE = &StreamOption{kind: streamPipe}

// STDOUT, valid only as the Stderr option, merges the child's stderr
// into wherever its stdout ends up.
var STDOUT = &StreamOption{kind: streamMergeStdout}

// Inherit requests that the child inherit the parent's stream unchanged.
// It is the zero value of *StreamOption, exposed so callers can write
// Options{Stdin: subprocess.Inherit()} instead of a bare nil.
func Inherit() *StreamOption { return nil }

// FD wires the child's stream directly to an already-open numeric
// descriptor in the parent. The library neither closes it nor marks it
// close-on-exec on the caller's behalf.
func FD(fd uintptr) *StreamOption { return &StreamOption{kind: streamFD, fd: fd} }

// File wires the child's stream to an already-open file handle. The
// library does not close it; the caller retains ownership.
func File(f *os.File) *StreamOption { return &StreamOption{kind: streamFile, file: f} }

// Path opens name for the child, in the direction implied by the stream
// it is attached to, and closes it in the parent after fork.
func Path(name string) *StreamOption { return &StreamOption{kind: streamPath, path: name} }
