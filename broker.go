//go:build unix

package subprocess

import (
	"os"
	"os/signal"
	"sync"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/riftlabs/subprocess/internal/xlog"
)

// sigchldBroker is the process-wide SIGCHLD wakeup broker described in
// SPEC_FULL.md §4.3: one global notify pipe fed by a relay goroutine
// standing in for an async-signal-context handler, fanned out under a
// mutex to one self-pipe per active Communicate call.
type sigchldBroker struct {
	mu       sync.Mutex
	watchers map[int]*os.File // pid -> per-call self-pipe write end
	relayCh  chan os.Signal
	ownerPid int
	globalR  *os.File
	globalW  *os.File
}

var globalBroker = &sigchldBroker{watchers: make(map[int]*os.File)}

// newPipe creates a non-blocking pipe, retrying a bounded number of
// times on transient failure (e.g. a momentary fd-table burst).
func newPipe() (r, w *os.File, err error) {
	rerr := retry.Retry(func(attempt uint) error {
		var perr error
		r, w, perr = os.Pipe()
		return perr
	}, strategy.Limit(3))
	if rerr != nil {
		return nil, nil, errors.Wrap(rerr, "subprocess: broker: create pipe")
	}
	if err := unix.SetNonblock(int(r.Fd()), true); err != nil {
		return nil, nil, errors.Wrap(err, "subprocess: broker: set nonblocking")
	}
	if err := unix.SetNonblock(int(w.Fd()), true); err != nil {
		return nil, nil, errors.Wrap(err, "subprocess: broker: set nonblocking")
	}
	return r, w, nil
}

// ensureGlobalPipeLocked (re)creates the global notify pipe if this is
// the first registration, or if the owning pid no longer matches the
// current process, so a forked-and-still-running copy of the process
// never shares a dead parent's pipe.
func (b *sigchldBroker) ensureGlobalPipeLocked() error {
	pid := os.Getpid()
	if b.globalR != nil && b.ownerPid == pid {
		return nil
	}
	if b.globalR != nil {
		_ = b.globalR.Close()
		_ = b.globalW.Close()
	}

	r, w, err := newPipe()
	if err != nil {
		return err
	}
	b.globalR, b.globalW = r, w
	b.ownerPid = pid
	return nil
}

// startRelayLocked installs the SIGCHLD relay. The relay goroutine plays
// the role of an async-signal-context handler: it does nothing but a
// single non-blocking write to the global pipe, touching no mutex and
// no registry, even though Go's signal.Notify delivery is already
// ordinary goroutine context and would tolerate more.
func (b *sigchldBroker) startRelayLocked() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGCHLD)
	b.relayCh = ch
	w := b.globalW
	go func() {
		for range ch {
			_, err := unix.Write(int(w.Fd()), []byte{0})
			if err != nil && err != unix.EAGAIN {
				return
			}
		}
	}()
	xlog.Debugf("broker: installed SIGCHLD relay")
}

// subscribe registers pid with the broker and returns the read end of a
// fresh per-call self-pipe plus the broker's global read end. unregister
// must be called exactly once, typically via defer.
func (b *sigchldBroker) subscribe(pid int) (selfRead, globalRead *os.File, unregister func(), err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureGlobalPipeLocked(); err != nil {
		return nil, nil, nil, err
	}
	if len(b.watchers) == 0 {
		b.startRelayLocked()
	}

	r, w, perr := newPipe()
	if perr != nil {
		return nil, nil, nil, perr
	}
	b.watchers[pid] = w

	globalRead = b.globalR
	selfRead = r

	unregister = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if cur, ok := b.watchers[pid]; ok && cur == w {
			_ = w.Close()
			delete(b.watchers, pid)
		}
		_ = r.Close()
		if len(b.watchers) == 0 && b.relayCh != nil {
			signal.Stop(b.relayCh)
			close(b.relayCh)
			b.relayCh = nil
			xlog.Debugf("broker: removed SIGCHLD relay, registry empty")
		}
	}

	return selfRead, globalRead, unregister, nil
}

// wakeupAll is called by whichever Communicate loop noticed the global
// pipe readable. It fans a single wakeup byte out to every registered
// per-call self-pipe under the broker's mutex, converting "some child
// died" into "every interested loop wakes up".
func (b *sigchldBroker) wakeupAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for pid, w := range b.watchers {
		_, err := unix.Write(int(w.Fd()), []byte{0})
		if err != nil && err != unix.EAGAIN {
			xlog.Debugf("broker: wakeup write failed for pid %d: %v", pid, err)
		}
	}
}
