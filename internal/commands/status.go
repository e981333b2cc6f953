package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"nselfadmin/internal/collectors"
	"nselfadmin/internal/docker"
	"nselfadmin/internal/metrics"
	"nselfadmin/internal/process"
	"nselfadmin/internal/scheduler"
	"nselfadmin/internal/server"
	"nselfadmin/internal/ui"
	"nselfadmin/pkg/utils"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show host and container stats and the daemon's sources",
		Long: `Display a one-shot view of:
  • Host metrics (CPU, memory, disk, load)
  • Aggregate container stats from the runtime
  • Daemon state and per-source freshness when the daemon runs

Examples:
  nselfadmin status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			ui.PrintHeader()

			host, err := metrics.CollectHost(ctx)
			ui.PrintSection("Host")
			if err != nil {
				ui.PrintStatus("warning", fmt.Sprintf("Host metrics incomplete: %v", err))
			}
			printHost(host)
			ui.PrintSectionEnd()

			provider, err := docker.NewProvider(cfg.Runtime.Provider, cfg.Runtime.Binary)
			if err != nil {
				return err
			}
			agg := metrics.NewAggregator(provider, metrics.WithStorageCapacity(cfg.Runtime.StorageCapacityGB))

			ui.PrintSection("Containers")
			var stats metrics.DockerStats
			_, err = ui.RunWithSpinner("Collecting container stats...", func() (string, error) {
				stats = agg.Collect(ctx)
				return fmt.Sprintf("%d containers", stats.Containers.Total), nil
			})
			if err != nil {
				ui.PrintSectionEnd()
				return err
			}
			ui.PrintDockerStats(stats)
			ui.PrintSectionEnd()

			ui.PrintSection("Daemon")
			running, pid, err := process.Check()
			switch {
			case err != nil:
				ui.PrintStatus("error", fmt.Sprintf("Failed to check daemon: %v", err))
			case !running:
				ui.PrintStatus("warning", "Daemon is not running")
			default:
				ui.PrintStatus("success", fmt.Sprintf("Daemon is running (PID %d)", pid))
				sources, err := collectors.Fetch[[]scheduler.SourceStatus](ctx, apiClient(cfg), server.PathSchedulerStatus)
				if err != nil {
					ui.PrintStatus("warning", fmt.Sprintf("Daemon API unreachable: %v", err))
				} else {
					fmt.Println(ui.RenderSourceTable(sources))
				}
			}
			ui.PrintSectionEnd()
			return nil
		},
	}
}

func printHost(h metrics.HostMetrics) {
	ui.PrintKeyValue("Hostname", h.Hostname)
	ui.PrintKeyValue("OS", h.OS)
	ui.PrintKeyValue("Uptime", utils.FormatUptime(h.Uptime))
	ui.PrintKeyValue("CPU", fmt.Sprintf("%s (%d cores)", utils.FormatPercentage(h.CPU), h.Cores))
	ui.PrintKeyValue("Load", fmt.Sprintf("%.2f %.2f %.2f", h.Load.Load1, h.Load.Load5, h.Load.Load15))
	ui.PrintKeyValue("Memory", fmt.Sprintf("%s / %s (%s)",
		utils.FormatGB(h.Memory.Used), utils.FormatGB(h.Memory.Total), utils.FormatPercentage(h.Memory.Percentage)))
	ui.PrintKeyValue("Disk", fmt.Sprintf("%s / %s (%s)",
		utils.FormatGB(h.Disk.Used), utils.FormatGB(h.Disk.Total), utils.FormatPercentage(h.Disk.Percentage)))
}
