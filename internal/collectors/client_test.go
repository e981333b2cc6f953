package collectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	constants "nselfadmin/config"
	"nselfadmin/internal/config"
	"nselfadmin/internal/encoding"
	apperrors "nselfadmin/internal/errors"
	"nselfadmin/internal/store"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret", time.Second)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestFetch_JSONEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, constants.CONTAINERS_PATH, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, constants.HEADER_ACCEPT, r.Header.Get("Accept"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":"a1","name":"postgres","state":"running"}]}`)
	})

	got, err := Fetch[[]store.Container](context.Background(), c, constants.CONTAINERS_PATH)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "postgres", got[0].Name)
}

func TestFetch_CBOREnvelope(t *testing.T) {
	body, err := encoding.MarshalCBOR(envelope[store.ProjectStatus]{
		Success: true,
		Data:    store.ProjectStatus{Name: "demo", Running: true, Services: 4},
	})
	require.NoError(t, err)

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", encoding.ContentTypeCBOR)
		_, _ = w.Write(body)
	})

	got, err := Fetch[store.ProjectStatus](context.Background(), c, constants.PROJECT_STATUS_PATH)
	require.NoError(t, err)
	assert.Equal(t, store.ProjectStatus{Name: "demo", Running: true, Services: 4}, got)
}

func TestFetch_Errors(t *testing.T) {
	cases := []struct {
		name string
		h    http.HandlerFunc
		code apperrors.ErrorCode
	}{
		{"unsuccessful", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"success":false,"error":"docker not reachable"}`)
		}, apperrors.ErrCodeUnavailable},
		{"status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadGateway, `{}`)
		}, apperrors.ErrCodeUnavailable},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"success":tru`)
		}, apperrors.ErrCodeInvalidResponse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestServer(t, tc.h)
			_, err := Fetch[store.Database](context.Background(), c, constants.DATABASE_STATS_PATH)
			require.Error(t, err)
			assert.Equal(t, tc.code, apperrors.CodeOf(err))
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Fetch[store.Database](ctx, c, constants.DATABASE_STATS_PATH)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTimeout, apperrors.CodeOf(err))
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, "", time.Second)
	_, err := Fetch[store.Database](context.Background(), c, constants.DATABASE_STATS_PATH)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnavailable, apperrors.CodeOf(err))
}

func TestAdapters_WriteStore(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(constants.PROJECT_STATUS_PATH, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"name":"demo","running":true}}`)
	})
	mux.HandleFunc(constants.DATABASE_STATS_PATH, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"stats":{"name":"app","connections":3},"tables":[{"schema":"public","name":"users","rows":10}]}}`)
	})
	mux.HandleFunc(constants.CONTAINER_STATS_PATH, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":"a1","cpu":2.5}]}`)
	})
	mux.HandleFunc(constants.SYSTEM_METRICS_PATH, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"docker":{"cpu":12.5}}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	st := store.New()
	a := NewAdapters(NewClient(srv.URL, "", time.Second), st)
	ctx := context.Background()

	require.NoError(t, a.FetchProjectStatus(ctx))
	require.NoError(t, a.FetchDatabase(ctx))
	require.NoError(t, a.FetchContainerStats(ctx))
	require.NoError(t, a.FetchSystemMetrics(ctx))

	assert.True(t, st.ProjectRunning())
	assert.Equal(t, 3, st.Database().Stats.Connections)
	assert.Equal(t, "users", st.Database().Tables[0].Name)
	assert.Equal(t, 2.5, st.ContainerStats()["a1"].CPU)
	assert.Equal(t, 12.5, st.SystemMetrics().Docker.CPU)

	// A failed fetch leaves the previous value in place.
	require.Error(t, a.FetchContainers(ctx))
	assert.Empty(t, st.Containers())
}

func TestAdapters_Sources(t *testing.T) {
	st := store.New()
	a := NewAdapters(NewClient("http://127.0.0.1:1", "", time.Second), st)
	cfg := &config.Config{Sources: map[string]config.SourceConfig{
		constants.SOURCE_DATABASE: {Enabled: false, Interval: time.Minute},
	}}

	sources := a.Sources(cfg)
	require.Len(t, sources, 5)

	byName := map[string]int{}
	for i, s := range sources {
		byName[s.Name] = i
	}
	assert.Equal(t, constants.SOURCE_PROJECT, sources[0].Name)
	assert.Nil(t, sources[byName[constants.SOURCE_PROJECT]].Precondition)
	assert.Nil(t, sources[byName[constants.SOURCE_SYSTEM]].Precondition)

	db := sources[byName[constants.SOURCE_DATABASE]]
	assert.False(t, db.Enabled)
	assert.Equal(t, time.Minute, db.Interval)
	require.NotNil(t, db.Precondition)
	assert.False(t, db.Precondition())

	st.SetProjectStatus(store.ProjectStatus{Running: true})
	assert.True(t, db.Precondition())
	assert.Equal(t, constants.DEFAULT_CONTAINERS_INTERVAL, sources[byName[constants.SOURCE_CONTAINERS]].Interval)
}
