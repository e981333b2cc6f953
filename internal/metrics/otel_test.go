package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type staticSource struct {
	stats DockerStats
	ok    bool
}

func (s staticSource) Last() (DockerStats, time.Time, bool) {
	return s.stats, time.Now(), s.ok
}

func collectGauges(t *testing.T, source SnapshotSource) map[string]metricdata.Gauge[float64] {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	require.NoError(t, RegisterGauges(provider.Meter("test"), source))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	gauges := make(map[string]metricdata.Gauge[float64])
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if g, ok := m.Data.(metricdata.Gauge[float64]); ok {
				gauges[m.Name] = g
			}
		}
	}
	return gauges
}

func valueFor(g metricdata.Gauge[float64], key, value string) (float64, bool) {
	for _, dp := range g.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value, true
		}
	}
	return 0, false
}

func TestRegisterGauges_ObservesLastSnapshot(t *testing.T) {
	stats := DockerStats{
		CPU:        42.5,
		Memory:     MemoryStats{Used: 0.5, Total: 2, Percentage: 25},
		Storage:    StorageStats{Used: 3, Total: 50, Percentage: 6},
		Network:    NetworkStats{RX: 1.5, TX: 0.7},
		Containers: ContainerCounts{Total: 2, Running: 1, Stopped: 1, Healthy: 1},
	}

	gauges := collectGauges(t, staticSource{stats: stats, ok: true})

	cpu, ok := gauges["nselfadmin.docker.cpu"]
	require.True(t, ok)
	require.Len(t, cpu.DataPoints, 1)
	assert.Equal(t, 42.5, cpu.DataPoints[0].Value)

	v, ok := valueFor(gauges["nselfadmin.docker.memory"], "type", "percentage")
	require.True(t, ok)
	assert.Equal(t, 25.0, v)

	v, ok = valueFor(gauges["nselfadmin.docker.storage"], "type", "used")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	v, ok = valueFor(gauges["nselfadmin.docker.network"], "direction", "tx")
	require.True(t, ok)
	assert.Equal(t, 0.7, v)

	v, ok = valueFor(gauges["nselfadmin.docker.containers"], "state", "healthy")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestRegisterGauges_NothingBeforeFirstCollect(t *testing.T) {
	gauges := collectGauges(t, staticSource{})

	for name, g := range gauges {
		assert.Empty(t, g.DataPoints, name)
	}
}

func TestExporter_StartRequiresEndpoint(t *testing.T) {
	var e Exporter
	assert.Error(t, e.Start(OTelConfig{}, staticSource{}))
	assert.False(t, e.Started())
	assert.NoError(t, e.Stop())
	assert.NoError(t, e.ForceFlush(context.Background()))
}
