package metrics

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/docker/go-units"

	"nselfadmin/pkg/utils"
)

const (
	bytesPerGiB = 1 << 30
	bytesPerGB  = 1e9
	bytesPerMB  = 1e6
)

// lines yields the trimmed non-empty lines of out.
func lines(out []byte, fn func(line string)) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			fn(line)
		}
	}
}

// ParseContainerStates counts "state\tstatus" lines. Health comes from the
// runtime's "(healthy)" / "(unhealthy)" annotation in the status column.
func ParseContainerStates(out []byte) ContainerCounts {
	var counts ContainerCounts
	lines(out, func(line string) {
		state, status, _ := strings.Cut(line, "\t")
		state = strings.ToLower(strings.TrimSpace(state))

		counts.Total++
		switch state {
		case "running":
			counts.Running++
		case "exited", "dead":
			counts.Stopped++
		}

		switch {
		case strings.Contains(status, "(unhealthy)"):
			counts.Unhealthy++
		case strings.Contains(status, "(healthy)"):
			counts.Healthy++
		}
	})
	return counts
}

// ParseMemoryString converts "512MiB / 2GiB" into used and limit in GiB.
func ParseMemoryString(s string) (used, total float64, err error) {
	usedStr, totalStr, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid memory usage %q", s)
	}
	usedBytes, err := units.RAMInBytes(strings.TrimSpace(usedStr))
	if err != nil {
		return 0, 0, err
	}
	totalBytes, err := units.RAMInBytes(strings.TrimSpace(totalStr))
	if err != nil {
		return 0, 0, err
	}
	return float64(usedBytes) / bytesPerGiB, float64(totalBytes) / bytesPerGiB, nil
}

func memoryStats(used, total float64) MemoryStats {
	return MemoryStats{
		Used:       utils.Round(used, 2),
		Total:      utils.Round(total, 2),
		Percentage: utils.Round(utils.Percent(used, total), 1),
	}
}

// ParseResourceUsage reads "cpu%\tused / limit" lines. CPU is a plain sum
// over containers. Memory comes from the first line that parses and is only
// a fallback for ParseMemoryUsage.
func ParseResourceUsage(out []byte) (cpu float64, fallback MemoryStats, ok bool) {
	var haveMem bool
	lines(out, func(line string) {
		cpuStr, memStr, _ := strings.Cut(line, "\t")
		if v, err := utils.ParseFloat(cpuStr); err == nil {
			cpu += v
			ok = true
		}
		if haveMem {
			return
		}
		if used, total, err := ParseMemoryString(memStr); err == nil {
			fallback = memoryStats(used, total)
			haveMem = true
			ok = true
		}
	})
	return utils.Round(cpu, 2), fallback, ok
}

// ParseMemoryUsage sums "used / limit" lines across all containers.
// ok is false when no line parsed.
func ParseMemoryUsage(out []byte) (MemoryStats, bool) {
	var used, total float64
	var ok bool
	lines(out, func(line string) {
		u, t, err := ParseMemoryString(line)
		if err != nil {
			return
		}
		used += u
		total += t
		ok = true
	})
	if !ok {
		return MemoryStats{}, false
	}
	return memoryStats(used, total), true
}

// ParseNetworkIO sums cumulative "rx / tx" lines into MB.
func ParseNetworkIO(out []byte) NetworkStats {
	var rx, tx float64
	lines(out, func(line string) {
		rxStr, txStr, found := strings.Cut(line, "/")
		if !found {
			return
		}
		r, err := units.FromHumanSize(strings.TrimSpace(rxStr))
		if err != nil {
			return
		}
		t, err := units.FromHumanSize(strings.TrimSpace(txStr))
		if err != nil {
			return
		}
		rx += float64(r)
		tx += float64(t)
	})
	return NetworkStats{
		RX: utils.Round(rx/bytesPerMB, 1),
		TX: utils.Round(tx/bytesPerMB, 1),
	}
}

type diskRecord struct {
	Size string `json:"Size"`
}

// ParseDiskUsage sums the Size field of JSON-line disk usage records into
// GB. Lines that are not valid records are skipped.
func ParseDiskUsage(out []byte, capacityGB float64) StorageStats {
	var used float64
	lines(out, func(line string) {
		var rec diskRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Size == "" {
			return
		}
		size, err := units.FromHumanSize(rec.Size)
		if err != nil {
			return
		}
		used += float64(size) / bytesPerGB
	})
	return StorageStats{
		Used:       utils.Round(used, 2),
		Total:      capacityGB,
		Percentage: math.Round(utils.Percent(used, capacityGB)),
	}
}
