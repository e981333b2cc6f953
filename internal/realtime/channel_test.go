package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nselfadmin/internal/metrics"
	"nselfadmin/internal/store"
)

func TestDispatch_ContainerUpdate(t *testing.T) {
	st := store.New()
	st.SetContainers([]store.Container{{ID: "a1", Name: "postgres", State: "running"}})
	c := New("ws://unused", st)

	c.dispatch(websocket.TextMessage, []byte(`{"type":"container-update","payload":{"id":"a1","state":"exited"}}`))
	c.dispatch(websocket.TextMessage, []byte(`{"type":"container-update","payload":{"id":"zz","name":"ghost","state":"running"}}`))

	got := st.Containers()
	require.Len(t, got, 1)
	assert.Equal(t, store.Container{ID: "a1", Name: "postgres", State: "exited"}, got[0])
}

func TestDispatch_IgnoresUnknownAndInvalid(t *testing.T) {
	st := store.New()
	c := New("ws://unused", st)

	c.dispatch(websocket.TextMessage, []byte(`{"type":"log-line","payload":{"line":"hello"}}`))
	c.dispatch(websocket.TextMessage, []byte(`not json`))
	c.dispatch(websocket.TextMessage, []byte(`{"type":"database-update"}`))

	assert.True(t, st.UpdatedAt(store.DomainDatabase).IsZero())
	assert.True(t, st.UpdatedAt(store.DomainSystem).IsZero())
}

func TestDispatch_BinaryCBOR(t *testing.T) {
	st := store.New()
	c := New("ws://unused", st)

	msg, err := cbor.Marshal(map[string]interface{}{
		"type":    EventMetricsUpdate,
		"payload": metrics.SystemMetrics{Docker: metrics.DockerStats{CPU: 33.5}},
	})
	require.NoError(t, err)

	c.dispatch(websocket.BinaryMessage, msg)
	assert.Equal(t, 33.5, st.SystemMetrics().Docker.CPU)
}

// pushServer upgrades every request and hands the connection to serve.
func pushServer(t *testing.T, serve func(conn *websocket.Conn)) (string, *atomic.Int32) {
	t.Helper()
	var connections atomic.Int32
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		connections.Add(1)
		serve(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), &connections
}

// holdOpen blocks until the client goes away.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestChannel_AppliesPushedEvents(t *testing.T) {
	url, connections := pushServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"database-update","payload":{"stats":{"name":"app","connections":7},"tables":[{"name":"users"}]}}`))
		holdOpen(conn)
	})

	st := store.New()
	c := New(url, st)
	c.Start(context.Background())
	c.Start(context.Background())

	require.Eventually(t, func() bool { return st.Database().Stats.Connections == 7 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), connections.Load())

	c.Stop()
	c.Stop()
}

func TestChannel_Reconnects(t *testing.T) {
	url, connections := pushServer(t, func(conn *websocket.Conn) {
		// Drop the connection right away.
	})

	c := New(url, store.New(), WithReconnect(true, 5*time.Millisecond, 20*time.Millisecond))
	c.Start(context.Background())
	defer c.Stop()

	require.Eventually(t, func() bool { return connections.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestChannel_NoReconnect(t *testing.T) {
	url, connections := pushServer(t, func(conn *websocket.Conn) {})

	c := New(url, store.New(), WithReconnect(false, 0, 0))
	c.Start(context.Background())

	require.Eventually(t, func() bool { return connections.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// The read loop has exited on its own, so Stop returns promptly.
	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), connections.Load())
}

func TestChannel_StopWhileDialFails(t *testing.T) {
	c := New("ws://127.0.0.1:1/realtime", store.New(), WithReconnect(true, 10*time.Millisecond, 20*time.Millisecond))
	c.Start(context.Background())
	time.Sleep(30 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
