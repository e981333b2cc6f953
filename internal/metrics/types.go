package metrics

import "time"

// DockerStats is the fixed-shape container runtime snapshot. Every field is
// always present; a failed collection step leaves its fields at zero.
//
// Units: CPU in percent (summed across containers, may exceed 100),
// memory in GiB, storage in GB, network in MB (cumulative counters).
type DockerStats struct {
	CPU        float64         `json:"cpu"`
	Memory     MemoryStats     `json:"memory"`
	Storage    StorageStats    `json:"storage"`
	Network    NetworkStats    `json:"network"`
	Containers ContainerCounts `json:"containers"`
}

type MemoryStats struct {
	Used       float64 `json:"used"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

type StorageStats struct {
	Used       float64 `json:"used"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

type NetworkStats struct {
	RX float64 `json:"rx"`
	TX float64 `json:"tx"`
}

type ContainerCounts struct {
	Total     int `json:"total"`
	Running   int `json:"running"`
	Stopped   int `json:"stopped"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
}

// EmptyDockerStats returns the snapshot reported when nothing could be
// collected. Storage capacity is configured, not measured, so it survives.
func EmptyDockerStats(capacityGB float64) DockerStats {
	return DockerStats{Storage: StorageStats{Total: capacityGB}}
}

// HostMetrics is the lightweight view of the machine running the runtime.
type HostMetrics struct {
	Hostname string      `json:"hostname"`
	OS       string      `json:"os"`
	Uptime   uint64      `json:"uptime"`
	CPU      float64     `json:"cpu"`
	Cores    int         `json:"cores"`
	Load     LoadAverage `json:"load"`
	Memory   UsageStats  `json:"memory"`
	Disk     UsageStats  `json:"disk"`
}

type LoadAverage struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// UsageStats is a used/total pair in GB.
type UsageStats struct {
	Used       float64 `json:"used"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

// SystemMetrics is the payload of the system metrics endpoint and of the
// metrics-update push event.
type SystemMetrics struct {
	Host      HostMetrics `json:"host"`
	Docker    DockerStats `json:"docker"`
	Timestamp time.Time   `json:"timestamp"`
}
