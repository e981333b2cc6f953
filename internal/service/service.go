//go:build !windows
// +build !windows

// Package service installs the daemon as a systemd/launchd service and
// reports its lifecycle back to systemd.
package service

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okzk/sdnotify"
	"github.com/takama/daemon"

	"nselfadmin/internal/logger"
)

const (
	serviceName        = "nselfadmin"
	serviceDescription = "nself admin sync engine - polls and streams project state"
)

// Service wraps takama/daemon. Root installs a system daemon, anyone else
// a user agent.
type Service struct {
	daemon daemon.Daemon
}

func New() (*Service, error) {
	kind := daemon.UserAgent
	if os.Geteuid() == 0 {
		kind = daemon.SystemDaemon
	}

	d, err := daemon.New(serviceName, serviceDescription, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon: %w", err)
	}
	return &Service{daemon: d}, nil
}

// Install registers the service to run "nselfadmin daemon", passing
// --config when configPath is set.
func (s *Service) Install(configPath string) (string, error) {
	status, err := s.daemon.Install(InstallArgs(configPath)...)
	if err != nil {
		return status, err
	}
	logger.Info("Service installed: %s", status)
	return status, nil
}

// InstallArgs returns the command line the service manager runs.
func InstallArgs(configPath string) []string {
	args := []string{"daemon"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}

func (s *Service) Remove() (string, error) {
	status, err := s.daemon.Remove()
	if err != nil {
		return status, err
	}
	logger.Info("Service removed: %s", status)
	return status, nil
}

func (s *Service) Start() (string, error) {
	status, err := s.daemon.Start()
	if err != nil {
		return status, err
	}
	logger.Info("Service started: %s", status)
	return status, nil
}

func (s *Service) Stop() (string, error) {
	status, err := s.daemon.Stop()
	if err != nil {
		return status, err
	}
	logger.Info("Service stopped: %s", status)
	return status, nil
}

func (s *Service) Status() (string, error) {
	return s.daemon.Status()
}

// IsRunning reports whether the service manager says the service runs.
func (s *Service) IsRunning() bool {
	status, err := s.daemon.Status()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(status), "running")
}

// NotifyReady tells systemd the daemon finished starting (Type=notify).
func NotifyReady() {
	if runtime.GOOS == "linux" {
		sdnotify.Ready()
		logger.Debug("Sent READY notification to systemd")
	}
}

func NotifyStopping() {
	if runtime.GOOS == "linux" {
		sdnotify.Stopping()
		logger.Debug("Sent STOPPING notification to systemd")
	}
}

// NotifyStatus sets the status line systemctl shows.
func NotifyStatus(status string) {
	if runtime.GOOS == "linux" {
		sdnotify.Status(status)
	}
}

// RunWatchdog pings the systemd watchdog every interval until ctx is done.
// status, when set, refreshes the status line on every ping.
func RunWatchdog(ctx context.Context, interval time.Duration, status func() string) {
	if runtime.GOOS != "linux" || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sdnotify.Watchdog()
			if status != nil {
				sdnotify.Status(status())
			}
		}
	}
}
