package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nselfadmin/internal/encoding"
	"nselfadmin/internal/metrics"
	"nselfadmin/internal/scheduler"
	"nselfadmin/internal/store"
)

type fakeStats struct {
	stats metrics.DockerStats
	calls int
}

func (f *fakeStats) Collect(ctx context.Context) metrics.DockerStats {
	f.calls++
	return f.stats
}

func newTestServer(t *testing.T) (*Server, *scheduler.Scheduler, *store.Store) {
	t.Helper()

	sched := scheduler.New(nil)
	require.NoError(t, sched.Register(scheduler.Source{
		Name:     "database",
		Enabled:  true,
		Interval: 30 * time.Second,
		Fetch:    func(ctx context.Context) error { return nil },
	}))

	st := store.New()
	stats := &fakeStats{stats: metrics.EmptyDockerStats(50)}
	stats.stats.CPU = 42.5

	srv := New(Deps{
		Stats:     stats,
		Scheduler: sched,
		Store:     st,
		Host: func(ctx context.Context) (metrics.HostMetrics, error) {
			return metrics.HostMetrics{Hostname: "box", Cores: 8}, nil
		},
		Version: "1.2.3",
	})
	return srv, sched, st
}

// envelopeOf decodes a JSON response body into the envelope with a typed data field.
func envelopeOf[T any](t *testing.T, body io.Reader) (bool, T, string) {
	t.Helper()
	var env struct {
		Success bool   `json:"success"`
		Data    T      `json:"data"`
		Error   string `json:"error"`
	}
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	return env.Success, env.Data, env.Error
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", PathHealth, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	success, data, _ := envelopeOf[map[string]string](t, resp.Body)
	assert.True(t, success)
	assert.Equal(t, "1.2.3", data["version"])
}

func TestDockerStats(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", PathDockerStats, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, encoding.ContentTypeJSON, resp.Header.Get("Content-Type"))

	success, stats, _ := envelopeOf[metrics.DockerStats](t, resp.Body)
	assert.True(t, success)
	assert.Equal(t, 42.5, stats.CPU)
	assert.Equal(t, 50.0, stats.Storage.Total)
}

func TestDockerStats_CBOR(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", PathDockerStats, nil)
	req.Header.Set("Accept", encoding.ContentTypeCBOR)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, encoding.ContentTypeCBOR, resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env struct {
		Success bool                `json:"success"`
		Data    metrics.DockerStats `json:"data"`
	}
	require.NoError(t, encoding.UnmarshalCBOR(body, &env))
	assert.True(t, env.Success)
	assert.Equal(t, 42.5, env.Data.CPU)
}

func TestSystemMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", PathSystemMetrics, nil))
	require.NoError(t, err)

	success, m, _ := envelopeOf[metrics.SystemMetrics](t, resp.Body)
	assert.True(t, success)
	assert.Equal(t, "box", m.Host.Hostname)
	assert.Equal(t, 42.5, m.Docker.CPU)
	assert.False(t, m.Timestamp.IsZero())
}

func TestSystemMetrics_HostFailureDegrades(t *testing.T) {
	srv := New(Deps{
		Stats: &fakeStats{stats: metrics.EmptyDockerStats(50)},
		Host: func(ctx context.Context) (metrics.HostMetrics, error) {
			return metrics.HostMetrics{}, errors.New("no /proc")
		},
	})

	resp, err := srv.App().Test(httptest.NewRequest("GET", PathSystemMetrics, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestSchedulerStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", PathSchedulerStatus, nil))
	require.NoError(t, err)

	success, status, _ := envelopeOf[[]scheduler.SourceStatus](t, resp.Body)
	assert.True(t, success)
	require.Len(t, status, 1)
	assert.Equal(t, "database", status[0].Name)
	assert.Equal(t, 30*time.Second, status[0].Interval)
	assert.False(t, status[0].Fetched())
}

func putSource(t *testing.T, srv *Server, name, body string) (int, io.Reader) {
	t.Helper()
	req := httptest.NewRequest("PUT", "/api/scheduler/sources/"+name, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	return resp.StatusCode, resp.Body
}

func TestUpdateSource(t *testing.T) {
	srv, sched, _ := newTestServer(t)

	code, body := putSource(t, srv, "database", `{"interval":"10s","enabled":false}`)
	assert.Equal(t, 200, code)
	success, st, _ := envelopeOf[scheduler.SourceStatus](t, body)
	assert.True(t, success)
	assert.Equal(t, 10*time.Second, st.Interval)
	assert.False(t, st.Enabled)
	assert.False(t, sched.Status()[0].Enabled)
}

func TestUpdateSource_Errors(t *testing.T) {
	srv, _, _ := newTestServer(t)

	code, body := putSource(t, srv, "nope", `{"interval":"10s"}`)
	assert.Equal(t, 404, code)
	success, _, msg := envelopeOf[any](t, body)
	assert.False(t, success)
	assert.Contains(t, msg, "unknown source")

	code, _ = putSource(t, srv, "database", `{"interval":"0s"}`)
	assert.Equal(t, 400, code)

	code, _ = putSource(t, srv, "database", `{"interval":"soon"}`)
	assert.Equal(t, 400, code)

	code, _ = putSource(t, srv, "database", `{}`)
	assert.Equal(t, 400, code)
}

func TestSnapshot(t *testing.T) {
	srv, _, st := newTestServer(t)
	st.SetContainers([]store.Container{{ID: "a1", Name: "postgres"}})

	resp, err := srv.App().Test(httptest.NewRequest("GET", PathSnapshot, nil))
	require.NoError(t, err)

	success, snap, _ := envelopeOf[store.Snapshot](t, resp.Body)
	assert.True(t, success)
	require.Len(t, snap.Containers, 1)
	assert.Equal(t, "postgres", snap.Containers[0].Name)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest("GET", PathMetrics, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}
