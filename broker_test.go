//go:build unix

package subprocess

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestBrokerSubscribeAndWakeup(t *testing.T) {
	selfRead, globalRead, unregister, err := globalBroker.subscribe(os.Getpid())
	require.NoError(t, err)
	defer unregister()
	require.NotNil(t, selfRead)
	require.NotNil(t, globalRead)

	globalBroker.wakeupAll()

	var fds unix.FdSet
	fdZero(&fds)
	fdSet(int(selfRead.Fd()), &fds)

	tv := unix.NsecToTimeval((time.Second).Nanoseconds())
	n, err := unix.Select(int(selfRead.Fd())+1, &fds, nil, nil, &tv)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, fdIsSet(int(selfRead.Fd()), &fds))
}

func TestBrokerUnregisterRemovesWatcher(t *testing.T) {
	_, _, unregister, err := globalBroker.subscribe(os.Getpid())
	require.NoError(t, err)

	unregister()

	globalBroker.mu.Lock()
	_, stillPresent := globalBroker.watchers[os.Getpid()]
	globalBroker.mu.Unlock()
	require.False(t, stillPresent)
}

func TestBrokerMultipleSubscribersEachWakeUp(t *testing.T) {
	selfA, _, unregA, err := globalBroker.subscribe(1000001)
	require.NoError(t, err)
	defer unregA()

	selfB, _, unregB, err := globalBroker.subscribe(1000002)
	require.NoError(t, err)
	defer unregB()

	globalBroker.wakeupAll()

	for _, f := range []*os.File{selfA, selfB} {
		var fds unix.FdSet
		fdZero(&fds)
		fdSet(int(f.Fd()), &fds)
		tv := unix.NsecToTimeval((time.Second).Nanoseconds())
		n, err := unix.Select(int(f.Fd())+1, &fds, nil, nil, &tv)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}
}
