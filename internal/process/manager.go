//go:build !windows
// +build !windows

package process

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// ErrNotRunning is returned when no daemon holds the PID lock.
var ErrNotRunning = errors.New("nselfadmin daemon is not running")

// signalProcess is a variable so tests can avoid signalling real processes.
var signalProcess = func(pid int, sig os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

// StopDaemon sends SIGTERM to the running daemon and waits up to timeout
// for it to release the PID lock.
func StopDaemon(timeout time.Duration) (int, error) {
	running, pid, err := Check()
	if err != nil {
		return 0, err
	}
	if !running || pid <= 0 {
		return 0, ErrNotRunning
	}
	if !IsDaemonProcess(pid) {
		return pid, fmt.Errorf("PID %d does not belong to an nselfadmin daemon", pid)
	}

	if err := signalProcess(pid, syscall.SIGTERM); err != nil {
		return pid, fmt.Errorf("failed to signal PID %d: %w", pid, err)
	}
	return pid, waitReleased(timeout)
}

// waitReleased polls the lock until it is free or timeout passes.
func waitReleased(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		running, _, err := Check()
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon still running after %s", timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
