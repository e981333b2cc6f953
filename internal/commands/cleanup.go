package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"nselfadmin/internal/process"
	"nselfadmin/internal/ui"
)

// NewCleanupCmd creates the cleanup command
func NewCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove a stale PID file left by a crashed daemon",
		Long: `Remove the daemon PID file when no live daemon owns it.
A running daemon is left untouched; use 'nselfadmin stop' first.

Examples:
  nselfadmin cleanup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.PrintSection("Cleaning Up")
			defer ui.PrintSectionEnd()

			if err := process.CleanupStale(); err != nil {
				ui.PrintStatus("error", err.Error())
				return err
			}
			ui.PrintStatus("success", fmt.Sprintf("PID file %s is clear", process.PIDFilePath()))
			return nil
		},
	}
}
