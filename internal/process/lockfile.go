//go:build !windows
// +build !windows

// Package process keeps one daemon per host: the daemon holds an flock on
// its PID file for as long as it runs, and the CLI reads that lock to find
// and signal it.
package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	constants "nselfadmin/config"
	"nselfadmin/internal/logger"
)

const pidFileName = "nselfadmin.pid"

// ErrAlreadyRunning is returned by Acquire while another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another nselfadmin daemon is already running")

// LockFile is an exclusive flock on the PID file, held until Release.
type LockFile struct {
	path string
	file *os.File
}

// getPIDFilePath is a variable so tests can point it at a temp dir.
var getPIDFilePath = func() string {
	if runtime.GOOS == "linux" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, pidFileName)
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "run", pidFileName)
		}
		return fmt.Sprintf("/tmp/nselfadmin-%d.pid", os.Getuid())
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", "nselfadmin", pidFileName)
	}
	return constants.PID_FILE
}

// PIDFilePath returns where the daemon's PID file lives.
func PIDFilePath() string {
	return getPIDFilePath()
}

// Acquire locks the PID file and writes the current PID into it.
// It fails with ErrAlreadyRunning if a live daemon holds the lock.
func Acquire() (*LockFile, error) {
	pidFile := getPIDFilePath()
	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	// One retry: a stale file is removed and the lock taken on a fresh one.
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(pidFile, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open PID file: %w", err)
		}

		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			f.Close()
			if stale, pid := checkStaleLock(pidFile); stale {
				logger.Info("Removing stale PID file (process %d is gone)", pid)
				os.Remove(pidFile)
				continue
			}
			return nil, ErrAlreadyRunning
		}

		if err := writePID(f); err != nil {
			syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
			f.Close()
			return nil, err
		}

		logger.Info("Acquired PID file lock: %s (PID: %d)", pidFile, os.Getpid())
		return &LockFile{path: pidFile, file: f}, nil
	}
	return nil, ErrAlreadyRunning
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate PID file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return fmt.Errorf("failed to write PID: %w", err)
	}
	return f.Sync()
}

// Release unlocks and removes the PID file. It is safe to call twice.
func (lf *LockFile) Release() error {
	if lf == nil || lf.file == nil {
		return nil
	}
	logger.Info("Releasing PID file lock: %s", lf.path)

	syscall.Flock(int(lf.file.Fd()), syscall.LOCK_UN)
	err := lf.file.Close()
	os.Remove(lf.path)
	lf.file = nil
	return err
}

// Check reports whether a daemon holds the lock, and its PID.
func Check() (bool, int, error) {
	f, err := os.Open(getPIDFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("failed to open PID file: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err != nil {
		return true, readPID(f), nil
	}
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return false, 0, nil
}

// checkStaleLock reports whether pidFile is unlocked, returning the PID it names.
func checkStaleLock(pidFile string) (bool, int) {
	f, err := os.Open(pidFile)
	if err != nil {
		return false, 0
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return false, 0
	}
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return true, readPID(f)
}

func readPID(f *os.File) int {
	buf := make([]byte, 32)
	n, _ := f.ReadAt(buf, 0)
	pid, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0
	}
	return pid
}

// IsDaemonProcess reports whether pid runs "nselfadmin daemon". It guards
// against PID reuse before signalling.
func IsDaemonProcess(pid int) bool {
	if pid <= 0 {
		return false
	}

	var cmdline string
	if runtime.GOOS == "linux" {
		data, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
		if err != nil {
			return false
		}
		cmdline = strings.ReplaceAll(string(data), "\x00", " ")
	} else {
		out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "command=").Output()
		if err != nil {
			return false
		}
		cmdline = string(out)
	}

	cmdline = strings.ToLower(cmdline)
	return strings.Contains(cmdline, "nselfadmin") && strings.Contains(cmdline, "daemon")
}

// CleanupStale removes a PID file no live daemon owns.
func CleanupStale() error {
	pidFile := getPIDFilePath()

	running, pid, err := Check()
	if err != nil {
		return err
	}
	if !running {
		os.Remove(pidFile)
		return nil
	}
	if !IsDaemonProcess(pid) {
		logger.Info("PID file names a foreign process (%d), removing it", pid)
		os.Remove(pidFile)
		return nil
	}
	return fmt.Errorf("nselfadmin daemon is running (PID %d)", pid)
}
