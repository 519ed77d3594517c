//go:build unix

package subprocess

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// fdSetSize is the bit width of one element of unix.FdSet.Bits on the
// build platform (64 on linux/amd64, narrower on some 32-bit targets).
// golang.org/x/sys/unix does not expose FD_SET/FD_ISSET helpers itself,
// so the classic select(2) bit-twiddling is reimplemented here once.
const fdSetSize = int(unsafe.Sizeof(unix.FdSet{}.Bits[0]) * 8)

func fdZero(set *unix.FdSet) {
	for i := range set.Bits {
		set.Bits[i] = 0
	}
}

func fdSet(fd int, set *unix.FdSet) {
	set.Bits[fd/fdSetSize] |= 1 << (uint(fd) % uint(fdSetSize))
}

func fdIsSet(fd int, set *unix.FdSet) bool {
	return set.Bits[fd/fdSetSize]&(1<<(uint(fd)%uint(fdSetSize))) != 0
}
