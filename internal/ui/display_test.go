package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nselfadmin/internal/metrics"
	"nselfadmin/internal/scheduler"
)

func TestRenderSourceTable(t *testing.T) {
	out := RenderSourceTable([]scheduler.SourceStatus{
		{Name: "system", Enabled: true, Interval: 5 * time.Second, LastFetch: time.Now(), Age: 1200 * time.Millisecond},
		{Name: "database", Enabled: false, Interval: 30 * time.Second, Age: scheduler.NeverFetched},
	})

	assert.Contains(t, out, "SOURCE")
	assert.Contains(t, out, "system")
	assert.Contains(t, out, "1.2s ago")
	assert.Contains(t, out, "database")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "30s")
}

func TestRenderDockerStats(t *testing.T) {
	s := metrics.EmptyDockerStats(50)
	s.CPU = 12.5
	s.Containers = metrics.ContainerCounts{Total: 3, Running: 2, Stopped: 1}

	out := strings.Join(RenderDockerStats(s), "\n")
	assert.Contains(t, out, "12.5%")
	assert.Contains(t, out, "50.00 GB")
	assert.Contains(t, out, "3 total, 2 running, 1 stopped")
}

func TestRenderProgressBar(t *testing.T) {
	bar := RenderProgressBar(50, 10)
	assert.Equal(t, 5, strings.Count(bar, progressFull))
	assert.Equal(t, 5, strings.Count(bar, progressEmpty))

	assert.Equal(t, 10, strings.Count(RenderProgressBar(150, 10), progressFull))
	assert.Equal(t, 0, strings.Count(RenderProgressBar(-3, 10), progressFull))
}

func TestRenderStatus(t *testing.T) {
	assert.Contains(t, RenderStatus("error", "boom"), IconError)
	assert.Contains(t, RenderStatus("whatever", "note"), IconInfo)
	assert.Contains(t, RenderStatus("success", "done"), "done")
}
