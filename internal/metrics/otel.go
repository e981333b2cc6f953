package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	constants "nselfadmin/config"
)

// OTelConfig holds the OTLP/HTTP export settings.
type OTelConfig struct {
	Endpoint string
	Token    string
	Insecure bool
	Interval time.Duration
	Hostname string
	Version  string
}

// SnapshotSource supplies the last collected stats to gauge callbacks.
type SnapshotSource interface {
	Last() (DockerStats, time.Time, bool)
}

// Exporter periodically pushes the latest DockerStats as OTLP gauges.
type Exporter struct {
	mu       sync.Mutex
	provider *sdkmetric.MeterProvider
	started  bool
}

// Start creates the exporter and registers gauges over source. Calling
// Start on a running exporter is a no-op.
func (e *Exporter) Start(cfg OTelConfig, source SnapshotSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("OTLP endpoint not configured")
	}

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithURLPath(constants.OTLP_PATH),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     30 * time.Second,
			MaxElapsedTime:  2 * time.Minute,
		}),
		otlpmetrichttp.WithTimeout(30 * time.Second),
	}
	if cfg.Token != "" {
		opts = append(opts, otlpmetrichttp.WithHeaders(map[string]string{
			"Authorization": "Bearer " + cfg.Token,
		}))
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	hostname := cfg.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	// Built without resource.Default() to avoid schema URL conflicts.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("nselfadmin"),
		semconv.ServiceVersion(version),
		semconv.HostName(hostname),
		attribute.String("os.type", runtime.GOOS),
	)

	interval := cfg.Interval
	if interval <= 0 {
		interval = constants.DEFAULT_OTEL_INTERVAL
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)

	meter := provider.Meter("nselfadmin/docker", metric.WithInstrumentationVersion(version))
	if err := RegisterGauges(meter, source); err != nil {
		_ = provider.Shutdown(context.Background())
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	e.provider = provider
	e.started = true
	return nil
}

// Stop flushes and shuts the exporter down. Safe to call repeatedly.
func (e *Exporter) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := e.provider.Shutdown(ctx)
	e.provider = nil
	e.started = false
	return err
}

// ForceFlush exports pending data points immediately.
func (e *Exporter) ForceFlush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	return e.provider.ForceFlush(ctx)
}

// Started reports whether the exporter is running.
func (e *Exporter) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// RegisterGauges registers one observable gauge per DockerStats section.
// Callbacks observe nothing until source has collected once.
func RegisterGauges(meter metric.Meter, source SnapshotSource) error {
	observe := func(fn func(s DockerStats, o metric.Float64Observer)) metric.Float64Callback {
		return func(ctx context.Context, o metric.Float64Observer) error {
			s, _, ok := source.Last()
			if !ok {
				return nil
			}
			fn(s, o)
			return nil
		}
	}
	typed := func(v string) metric.ObserveOption {
		return metric.WithAttributes(attribute.String("type", v))
	}

	if _, err := meter.Float64ObservableGauge(
		"nselfadmin.docker.cpu",
		metric.WithDescription("Summed container CPU usage"),
		metric.WithUnit("%"),
		metric.WithFloat64Callback(observe(func(s DockerStats, o metric.Float64Observer) {
			o.Observe(s.CPU)
		})),
	); err != nil {
		return err
	}

	if _, err := meter.Float64ObservableGauge(
		"nselfadmin.docker.memory",
		metric.WithDescription("Container memory in GiB and percent of limit"),
		metric.WithFloat64Callback(observe(func(s DockerStats, o metric.Float64Observer) {
			o.Observe(s.Memory.Used, typed("used"))
			o.Observe(s.Memory.Total, typed("total"))
			o.Observe(s.Memory.Percentage, typed("percentage"))
		})),
	); err != nil {
		return err
	}

	if _, err := meter.Float64ObservableGauge(
		"nselfadmin.docker.storage",
		metric.WithDescription("Runtime disk usage in GB and percent of capacity"),
		metric.WithFloat64Callback(observe(func(s DockerStats, o metric.Float64Observer) {
			o.Observe(s.Storage.Used, typed("used"))
			o.Observe(s.Storage.Total, typed("total"))
			o.Observe(s.Storage.Percentage, typed("percentage"))
		})),
	); err != nil {
		return err
	}

	if _, err := meter.Float64ObservableGauge(
		"nselfadmin.docker.network",
		metric.WithDescription("Cumulative container network I/O"),
		metric.WithUnit("MB"),
		metric.WithFloat64Callback(observe(func(s DockerStats, o metric.Float64Observer) {
			o.Observe(s.Network.RX, metric.WithAttributes(attribute.String("direction", "rx")))
			o.Observe(s.Network.TX, metric.WithAttributes(attribute.String("direction", "tx")))
		})),
	); err != nil {
		return err
	}

	_, err := meter.Float64ObservableGauge(
		"nselfadmin.docker.containers",
		metric.WithDescription("Container counts by state"),
		metric.WithFloat64Callback(observe(func(s DockerStats, o metric.Float64Observer) {
			c := s.Containers
			for state, n := range map[string]int{
				"total":     c.Total,
				"running":   c.Running,
				"stopped":   c.Stopped,
				"healthy":   c.Healthy,
				"unhealthy": c.Unhealthy,
			} {
				o.Observe(float64(n), metric.WithAttributes(attribute.String("state", state)))
			}
		})),
	)
	return err
}
