package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"
	"golang.org/x/sync/errgroup"
)

// maxParallelStats bounds concurrent per-container stats requests.
const maxParallelStats = 8

// engineAPI is the subset of the docker client used by EngineProvider.
type engineAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerStats(ctx context.Context, containerID string, stream bool) (types.ContainerStats, error)
	DiskUsage(ctx context.Context, options types.DiskUsageOptions) (types.DiskUsage, error)
}

// EngineProvider talks to the Docker Engine API and renders its answers in
// the same line formats the CLI produces.
type EngineProvider struct {
	api engineAPI
}

// NewEngineProvider connects using DOCKER_HOST and friends from the environment.
func NewEngineProvider() (*EngineProvider, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &EngineProvider{api: cli}, nil
}

func (p *EngineProvider) ContainerStates(ctx context.Context) ([]byte, error) {
	containers, err := p.api.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var buf bytes.Buffer
	for _, c := range containers {
		fmt.Fprintf(&buf, "%s\t%s\n", c.State, c.Status)
	}
	return buf.Bytes(), nil
}

func (p *EngineProvider) ResourceUsage(ctx context.Context) ([]byte, error) {
	samples, err := p.samples(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, s := range samples {
		fmt.Fprintf(&buf, "%s\t%s\n", s.cpuString(), s.memString())
	}
	return buf.Bytes(), nil
}

func (p *EngineProvider) MemoryUsage(ctx context.Context) ([]byte, error) {
	samples, err := p.samples(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, s := range samples {
		fmt.Fprintln(&buf, s.memString())
	}
	return buf.Bytes(), nil
}

func (p *EngineProvider) NetworkIO(ctx context.Context) ([]byte, error) {
	samples, err := p.samples(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, s := range samples {
		fmt.Fprintln(&buf, s.netString())
	}
	return buf.Bytes(), nil
}

func (p *EngineProvider) DiskUsage(ctx context.Context) ([]byte, error) {
	du, err := p.api.DiskUsage(ctx, types.DiskUsageOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read disk usage: %w", err)
	}

	summary := diskSummary{layers: du.LayersSize, images: len(du.Images)}
	for _, c := range du.Containers {
		if c != nil {
			summary.containers = append(summary.containers, c.SizeRw)
		}
	}
	for _, v := range du.Volumes {
		if v != nil && v.UsageData != nil && v.UsageData.Size > 0 {
			summary.volumes = append(summary.volumes, v.UsageData.Size)
		}
	}
	for _, b := range du.BuildCache {
		if b != nil {
			summary.buildCache = append(summary.buildCache, b.Size)
		}
	}
	return summary.render()
}

// samples reads one non-streaming stats snapshot per running container.
// Containers whose stats cannot be read are left out.
func (p *EngineProvider) samples(ctx context.Context) ([]statsSample, error) {
	containers, err := p.api.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var (
		mu      sync.Mutex
		samples = make([]statsSample, 0, len(containers))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelStats)
	for _, c := range containers {
		id := c.ID
		g.Go(func() error {
			s, err := p.sample(gctx, id)
			if err != nil {
				return nil
			}
			mu.Lock()
			samples = append(samples, s)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

func (p *EngineProvider) sample(ctx context.Context, id string) (statsSample, error) {
	resp, err := p.api.ContainerStats(ctx, id, false)
	if err != nil {
		return statsSample{}, err
	}
	defer resp.Body.Close()

	var v types.StatsJSON
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return statsSample{}, err
	}
	return newStatsSample(&v), nil
}

// statsSample is one container's stats reduced to the fields we render.
type statsSample struct {
	cpuPercent float64
	memUsed    float64
	memLimit   float64
	rxBytes    float64
	txBytes    float64
}

func newStatsSample(v *types.StatsJSON) statsSample {
	s := statsSample{
		cpuPercent: cpuPercent(v),
		memUsed:    memoryWithoutCache(v.MemoryStats),
		memLimit:   float64(v.MemoryStats.Limit),
	}
	for _, n := range v.Networks {
		s.rxBytes += float64(n.RxBytes)
		s.txBytes += float64(n.TxBytes)
	}
	return s
}

func (s statsSample) cpuString() string {
	return fmt.Sprintf("%.2f%%", s.cpuPercent)
}

func (s statsSample) memString() string {
	return units.BytesSize(s.memUsed) + " / " + units.BytesSize(s.memLimit)
}

func (s statsSample) netString() string {
	return units.HumanSizeWithPrecision(s.rxBytes, 3) + " / " + units.HumanSizeWithPrecision(s.txBytes, 3)
}

// cpuPercent matches the docker CLI: usage delta over system delta,
// scaled by the number of online CPUs.
func cpuPercent(v *types.StatsJSON) float64 {
	cpuDelta := float64(v.CPUStats.CPUUsage.TotalUsage) - float64(v.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(v.CPUStats.SystemUsage) - float64(v.PreCPUStats.SystemUsage)

	onlineCPUs := float64(v.CPUStats.OnlineCPUs)
	if onlineCPUs == 0 {
		onlineCPUs = float64(len(v.CPUStats.CPUUsage.PercpuUsage))
	}

	if systemDelta > 0 && cpuDelta > 0 {
		return cpuDelta / systemDelta * onlineCPUs * 100
	}
	return 0
}

// memoryWithoutCache subtracts the page cache the way the docker CLI does
// for cgroup v1 (total_inactive_file) and v2 (inactive_file).
func memoryWithoutCache(mem types.MemoryStats) float64 {
	if v, ok := mem.Stats["total_inactive_file"]; ok && v < mem.Usage {
		return float64(mem.Usage - v)
	}
	if v, ok := mem.Stats["inactive_file"]; ok && v < mem.Usage {
		return float64(mem.Usage - v)
	}
	return float64(mem.Usage)
}

// diskSummary mirrors the four categories of "docker system df".
type diskSummary struct {
	layers     int64
	images     int
	containers []int64
	volumes    []int64
	buildCache []int64
}

type diskRecord struct {
	Type       string `json:"Type"`
	TotalCount string `json:"TotalCount"`
	Size       string `json:"Size"`
}

func (d diskSummary) render() ([]byte, error) {
	records := []diskRecord{
		{Type: "Images", TotalCount: fmt.Sprint(d.images), Size: units.HumanSize(float64(d.layers))},
		{Type: "Containers", TotalCount: fmt.Sprint(len(d.containers)), Size: units.HumanSize(sum(d.containers))},
		{Type: "Local Volumes", TotalCount: fmt.Sprint(len(d.volumes)), Size: units.HumanSize(sum(d.volumes))},
		{Type: "Build Cache", TotalCount: fmt.Sprint(len(d.buildCache)), Size: units.HumanSize(sum(d.buildCache))},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func sum(values []int64) float64 {
	var total int64
	for _, v := range values {
		total += v
	}
	return float64(total)
}
