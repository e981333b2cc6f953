package metrics

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"nselfadmin/pkg/utils"
)

// CollectHost reads lightweight host metrics. Individual readings that
// fail are left at zero; an error is returned only when nothing could be
// read at all.
func CollectHost(ctx context.Context) (HostMetrics, error) {
	var (
		m    HostMetrics
		errs int
	)

	if info, err := host.InfoWithContext(ctx); err == nil {
		m.Hostname = info.Hostname
		m.OS = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		m.Uptime = info.Uptime
	} else {
		errs++
	}

	if percent, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percent) > 0 {
		m.CPU = utils.Round(percent[0], 1)
	} else {
		errs++
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		m.Cores = cores
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		m.Load = LoadAverage{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		m.Memory = UsageStats{
			Used:       utils.Round(float64(vm.Used)/bytesPerGB, 2),
			Total:      utils.Round(float64(vm.Total)/bytesPerGB, 2),
			Percentage: utils.Round(vm.UsedPercent, 1),
		}
	} else {
		errs++
	}

	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		m.Disk = UsageStats{
			Used:       utils.Round(float64(usage.Used)/bytesPerGB, 2),
			Total:      utils.Round(float64(usage.Total)/bytesPerGB, 2),
			Percentage: utils.Round(usage.UsedPercent, 1),
		}
	} else {
		errs++
	}

	if errs == 4 {
		return m, fmt.Errorf("failed to read host metrics")
	}
	return m, nil
}
