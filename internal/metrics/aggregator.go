package metrics

import (
	"bytes"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	constants "nselfadmin/config"
	"nselfadmin/internal/docker"
	"nselfadmin/internal/logger"
	"nselfadmin/internal/telemetry"
)

// Step names used in logs and the step failure counter.
const (
	StepContainers = "containers"
	StepResources  = "resources"
	StepMemory     = "memory"
	StepStorage    = "storage"
	StepNetwork    = "network"
)

// Timeouts bounds each provider call.
type Timeouts struct {
	List  time.Duration
	Stats time.Duration
	Disk  time.Duration
}

// DefaultTimeouts keeps listings short and gives stats calls room to sample.
var DefaultTimeouts = Timeouts{
	List:  constants.LIST_TIMEOUT,
	Stats: constants.STATS_TIMEOUT,
	Disk:  constants.DF_TIMEOUT,
}

// cacheSlot holds the last collected snapshot.
type cacheSlot struct {
	data      *DockerStats
	timestamp time.Time
}

// Aggregator turns provider output into DockerStats and caches the result
// for a short TTL. It owns its cache slot exclusively.
type Aggregator struct {
	provider   docker.Provider
	ttl        time.Duration
	capacityGB float64
	timeouts   Timeouts
	now        func() time.Time

	mu    sync.RWMutex
	slot  cacheSlot
	group singleflight.Group
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTTL sets the cache freshness window. Zero disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(a *Aggregator) { a.ttl = ttl }
}

// WithStorageCapacity sets the assumed disk capacity in GB.
func WithStorageCapacity(gb float64) Option {
	return func(a *Aggregator) {
		if gb > 0 {
			a.capacityGB = gb
		}
	}
}

func WithTimeouts(t Timeouts) Option {
	return func(a *Aggregator) { a.timeouts = t }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an aggregator reading from provider.
func NewAggregator(provider docker.Provider, opts ...Option) *Aggregator {
	a := &Aggregator{
		provider:   provider,
		ttl:        constants.DEFAULT_STATS_CACHE_TTL,
		capacityGB: constants.DEFAULT_STORAGE_CAPACITY_GB,
		timeouts:   DefaultTimeouts,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect returns the current snapshot. A fresh cached value is returned
// without calling the provider. Concurrent misses share one collection.
// Collect never fails: steps that fail contribute zero values.
func (a *Aggregator) Collect(ctx context.Context) DockerStats {
	if stats, ok := a.cached(); ok {
		telemetry.RecordCache(true)
		return stats
	}
	telemetry.RecordCache(false)

	v, _, _ := a.group.Do("collect", func() (interface{}, error) {
		if stats, ok := a.cached(); ok {
			return stats, nil
		}
		stats := a.collect(ctx)
		// A cancelled caller produced zeros that say nothing about the runtime.
		if ctx.Err() == nil {
			a.fill(stats)
		}
		return stats, nil
	})
	return v.(DockerStats)
}

// Last returns the most recent snapshot regardless of age.
func (a *Aggregator) Last() (DockerStats, time.Time, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.slot.data == nil {
		return EmptyDockerStats(a.capacityGB), time.Time{}, false
	}
	return *a.slot.data, a.slot.timestamp, true
}

// Invalidate drops the cached snapshot.
func (a *Aggregator) Invalidate() {
	a.mu.Lock()
	a.slot = cacheSlot{}
	a.mu.Unlock()
}

func (a *Aggregator) cached() (DockerStats, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.slot.data == nil || a.now().Sub(a.slot.timestamp) >= a.ttl {
		return DockerStats{}, false
	}
	return *a.slot.data, true
}

func (a *Aggregator) fill(stats DockerStats) {
	a.mu.Lock()
	a.slot = cacheSlot{data: &stats, timestamp: a.now()}
	a.mu.Unlock()
}

// collect fans out the four independent steps. Each writes disjoint fields.
func (a *Aggregator) collect(ctx context.Context) DockerStats {
	stats := EmptyDockerStats(a.capacityGB)

	var g errgroup.Group
	g.Go(func() error {
		stats.Containers = a.containerCounts(ctx)
		return nil
	})
	g.Go(func() error {
		stats.CPU, stats.Memory = a.cpuMemory(ctx)
		return nil
	})
	g.Go(func() error {
		stats.Storage = a.storage(ctx)
		return nil
	})
	g.Go(func() error {
		stats.Network = a.network(ctx)
		return nil
	})
	_ = g.Wait()

	return stats
}

// call runs one provider call under its own deadline and degrades errors
// to a logged, counted miss.
func (a *Aggregator) call(ctx context.Context, step string, timeout time.Duration, fn func(context.Context) ([]byte, error)) ([]byte, bool) {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := fn(stepCtx)
	if err != nil {
		logger.Debug("docker stats step %s failed: %v", step, err)
		telemetry.RecordStepFailure(step)
		return nil, false
	}
	return out, true
}

func (a *Aggregator) containerCounts(ctx context.Context) ContainerCounts {
	out, ok := a.call(ctx, StepContainers, a.timeouts.List, a.provider.ContainerStates)
	if !ok {
		return ContainerCounts{}
	}
	return ParseContainerStates(out)
}

// cpuMemory sums CPU and reads memory from the first container, then lets
// the all-container memory pass override that fallback when it succeeds.
func (a *Aggregator) cpuMemory(ctx context.Context) (float64, MemoryStats) {
	var (
		wg        sync.WaitGroup
		memOut    []byte
		memCalled bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		memOut, memCalled = a.call(ctx, StepMemory, a.timeouts.Stats, a.provider.MemoryUsage)
	}()

	var (
		cpu      float64
		fallback MemoryStats
	)
	if out, ok := a.call(ctx, StepResources, a.timeouts.Stats, a.provider.ResourceUsage); ok {
		cpu, fallback, _ = ParseResourceUsage(out)
	}

	wg.Wait()
	if memCalled {
		if total, ok := ParseMemoryUsage(memOut); ok {
			return cpu, total
		}
		if len(bytes.TrimSpace(memOut)) > 0 {
			logger.Debug("docker stats step %s: no parseable memory lines", StepMemory)
			telemetry.RecordStepFailure(StepMemory)
		}
	}
	return cpu, fallback
}

func (a *Aggregator) storage(ctx context.Context) StorageStats {
	out, ok := a.call(ctx, StepStorage, a.timeouts.Disk, a.provider.DiskUsage)
	if !ok {
		return StorageStats{Total: a.capacityGB}
	}
	return ParseDiskUsage(out, a.capacityGB)
}

func (a *Aggregator) network(ctx context.Context) NetworkStats {
	out, ok := a.call(ctx, StepNetwork, a.timeouts.Stats, a.provider.NetworkIO)
	if !ok {
		return NetworkStats{}
	}
	return ParseNetworkIO(out)
}
