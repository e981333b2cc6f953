//go:build windows
// +build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/windows"

	"nselfadmin/internal/logger"
)

var (
	ErrAlreadyRunning = errors.New("another nselfadmin daemon is already running")
	ErrNotRunning     = errors.New("nselfadmin daemon is not running")
)

// LockFile holds a LockFileEx lock on the PID file until Release.
type LockFile struct {
	path string
	file *os.File
}

var getPIDFilePath = func() string {
	return filepath.Join(os.TempDir(), "nselfadmin.pid")
}

func PIDFilePath() string {
	return getPIDFilePath()
}

// lockOffset places the locked byte past the PID text so readers are not blocked.
const lockOffset = 1 << 20

func lock(f *os.File, flags uint32) error {
	ol := &windows.Overlapped{Offset: lockOffset}
	return windows.LockFileEx(windows.Handle(f.Fd()), flags|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, ol)
}

func unlock(f *os.File) {
	ol := &windows.Overlapped{Offset: lockOffset}
	windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol)
}

// Acquire locks the PID file and writes the current PID into it.
func Acquire() (*LockFile, error) {
	pidFile := getPIDFilePath()
	f, err := os.OpenFile(pidFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open PID file: %w", err)
	}
	if err := lock(f, windows.LOCKFILE_EXCLUSIVE_LOCK); err != nil {
		f.Close()
		return nil, ErrAlreadyRunning
	}

	if err := f.Truncate(0); err != nil {
		unlock(f)
		f.Close()
		return nil, fmt.Errorf("failed to truncate PID file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		unlock(f)
		f.Close()
		return nil, fmt.Errorf("failed to write PID: %w", err)
	}
	logger.Info("Acquired PID file lock: %s (PID: %d)", pidFile, os.Getpid())
	return &LockFile{path: pidFile, file: f}, nil
}

func (lf *LockFile) Release() error {
	if lf == nil || lf.file == nil {
		return nil
	}
	unlock(lf.file)
	err := lf.file.Close()
	os.Remove(lf.path)
	lf.file = nil
	return err
}

// Check reports whether a daemon holds the lock, and its PID.
func Check() (bool, int, error) {
	f, err := os.OpenFile(getPIDFilePath(), os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("failed to open PID file: %w", err)
	}
	defer f.Close()

	if err := lock(f, 0); err != nil {
		data, _ := os.ReadFile(getPIDFilePath())
		pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
		return true, pid, nil
	}
	unlock(f)
	return false, 0, nil
}

// IsDaemonProcess reports whether pid is an nselfadmin.exe process.
func IsDaemonProcess(pid int) bool {
	out, err := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/NH").Output()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(out)), "nselfadmin")
}

func CleanupStale() error {
	running, pid, err := Check()
	if err != nil {
		return err
	}
	if running && IsDaemonProcess(pid) {
		return fmt.Errorf("nselfadmin daemon is running (PID %d)", pid)
	}
	os.Remove(getPIDFilePath())
	return nil
}

// StopDaemon asks the daemon to exit with taskkill and waits for the lock.
func StopDaemon(timeout time.Duration) (int, error) {
	running, pid, err := Check()
	if err != nil {
		return 0, err
	}
	if !running || pid <= 0 {
		return 0, ErrNotRunning
	}
	if err := exec.Command("taskkill", "/PID", strconv.Itoa(pid)).Run(); err != nil {
		if err := exec.Command("taskkill", "/F", "/PID", strconv.Itoa(pid)).Run(); err != nil {
			return pid, fmt.Errorf("failed to stop process: %w", err)
		}
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if running, _, _ := Check(); !running {
			return pid, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return pid, fmt.Errorf("daemon still running after %s", timeout)
}
