package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nselfadmin/internal/process"
	"nselfadmin/internal/ui"
)

// NewStopCmd stops a daemon started outside the service manager.
func NewStopCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.PrintSection("Stopping Daemon")
			defer ui.PrintSectionEnd()

			pid, err := process.StopDaemon(timeout)
			switch {
			case errors.Is(err, process.ErrNotRunning):
				ui.PrintStatus("info", "Daemon is not running")
				return nil
			case err != nil:
				ui.PrintStatus("error", fmt.Sprintf("Failed to stop daemon: %v", err))
				return err
			}
			ui.PrintStatus("success", fmt.Sprintf("Daemon stopped (PID %d)", pid))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "how long to wait for the daemon to exit")
	return cmd
}
