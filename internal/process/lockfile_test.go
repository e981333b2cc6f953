//go:build !windows
// +build !windows

package process

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// usePIDFile points the package at a PID file under a temp dir.
func usePIDFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run", "nselfadmin.pid")
	original := getPIDFilePath
	getPIDFilePath = func() string { return path }
	t.Cleanup(func() { getPIDFilePath = original })
	return path
}

func TestLockfile_SingleInstance(t *testing.T) {
	usePIDFile(t)

	lock1, err := Acquire()
	require.NoError(t, err)
	defer lock1.Release()

	lock2, err := Acquire()
	if err == nil {
		lock2.Release()
	}
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestLockfile_ReleaseAndReacquire(t *testing.T) {
	path := usePIDFile(t)

	lock1, err := Acquire()
	require.NoError(t, err)
	require.NoError(t, lock1.Release())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "PID file should be removed on release")

	lock2, err := Acquire()
	require.NoError(t, err)
	defer lock2.Release()

	assert.FileExists(t, path)
}

func TestLockfile_StaleFileIsReplaced(t *testing.T) {
	path := usePIDFile(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("99999\n"), 0644))

	lock, err := Acquire()
	require.NoError(t, err)
	defer lock.Release()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(content)))
}

func TestLockfile_Check(t *testing.T) {
	usePIDFile(t)

	running, pid, err := Check()
	require.NoError(t, err)
	assert.False(t, running)
	assert.Zero(t, pid)

	lock, err := Acquire()
	require.NoError(t, err)
	defer lock.Release()

	running, pid, err = Check()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestLockfile_ConcurrentAcquisition(t *testing.T) {
	usePIDFile(t)

	var acquired, refused atomic.Int32
	var wg sync.WaitGroup
	locks := make(chan *LockFile, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := Acquire()
			if err != nil {
				refused.Add(1)
				return
			}
			acquired.Add(1)
			locks <- lock
		}()
	}
	wg.Wait()
	close(locks)
	for lock := range locks {
		lock.Release()
	}

	assert.Equal(t, int32(1), acquired.Load())
	assert.Equal(t, int32(9), refused.Load())
}

func TestLockfile_CleanupStale(t *testing.T) {
	path := usePIDFile(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("99999\n"), 0644))

	require.NoError(t, CleanupStale())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLockfile_MultipleReleases(t *testing.T) {
	usePIDFile(t)

	lock, err := Acquire()
	require.NoError(t, err)

	assert.NoError(t, lock.Release())
	assert.NoError(t, lock.Release())

	lock2, err := Acquire()
	require.NoError(t, err)
	defer lock2.Release()
}

func TestIsDaemonProcess(t *testing.T) {
	assert.False(t, IsDaemonProcess(0))
	assert.False(t, IsDaemonProcess(-5))
	// The test binary is not "nselfadmin daemon".
	assert.False(t, IsDaemonProcess(os.Getpid()))
}

func TestStopDaemon_NotRunning(t *testing.T) {
	usePIDFile(t)

	_, err := StopDaemon(time.Second)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestStopDaemon_RefusesForeignProcess(t *testing.T) {
	usePIDFile(t)

	var signalled atomic.Bool
	original := signalProcess
	signalProcess = func(pid int, sig os.Signal) error {
		signalled.Store(true)
		return nil
	}
	t.Cleanup(func() { signalProcess = original })

	lock, err := Acquire()
	require.NoError(t, err)
	defer lock.Release()

	pid, err := StopDaemon(time.Second)
	assert.Error(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.False(t, signalled.Load())
}
