package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nselfadmin/internal/metrics"
)

func TestUpsertContainer_UnknownIDIsNoop(t *testing.T) {
	s := New()
	s.SetContainers([]Container{
		{ID: "a", Name: "postgres", State: "running"},
		{ID: "b", Name: "hasura", State: "running"},
	})
	before := s.Containers()
	updatedAt := s.UpdatedAt(DomainContainers)

	ok := s.UpsertContainer(Container{ID: "zzz", Name: "ghost", State: "running"})

	assert.False(t, ok)
	assert.Equal(t, before, s.Containers())
	assert.Equal(t, updatedAt, s.UpdatedAt(DomainContainers))
}

func TestUpsertContainer_MergesKnownID(t *testing.T) {
	s := New()
	s.SetContainers([]Container{{ID: "a", Name: "postgres", Image: "postgres:16", State: "running", Status: "Up 1h"}})

	ok := s.UpsertContainer(Container{ID: "a", State: "exited", Status: "Exited (0) 1s ago"})
	require.True(t, ok)

	got := s.Containers()
	require.Len(t, got, 1)
	assert.Equal(t, Container{ID: "a", Name: "postgres", Image: "postgres:16", State: "exited", Status: "Exited (0) 1s ago"}, got[0])
}

func TestUpsertContainer_EmptyID(t *testing.T) {
	s := New()
	s.SetContainers([]Container{{ID: "a"}})
	assert.False(t, s.UpsertContainer(Container{Name: "x"}))
}

func TestGettersReturnCopies(t *testing.T) {
	s := New()
	s.SetContainers([]Container{{ID: "a", Name: "one"}})
	s.SetDatabase(Database{Tables: []TableInfo{{Name: "users"}}})
	s.SetContainerStats([]ContainerStats{{ID: "a", CPU: 1}})

	c := s.Containers()
	c[0].Name = "mutated"
	db := s.Database()
	db.Tables[0].Name = "mutated"
	cs := s.ContainerStats()
	cs["a"] = ContainerStats{ID: "a", CPU: 99}

	assert.Equal(t, "one", s.Containers()[0].Name)
	assert.Equal(t, "users", s.Database().Tables[0].Name)
	assert.Equal(t, 1.0, s.ContainerStats()["a"].CPU)
}

func TestSetContainerStats_ReplacesByID(t *testing.T) {
	s := New()
	s.SetContainerStats([]ContainerStats{{ID: "a", CPU: 1}, {ID: "b", CPU: 2}})
	s.SetContainerStats([]ContainerStats{{ID: "b", CPU: 3}, {CPU: 4}})

	got := s.ContainerStats()
	assert.Len(t, got, 1)
	assert.Equal(t, 3.0, got["b"].CPU)
}

func TestSnapshot(t *testing.T) {
	s := New()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.SetProjectStatus(ProjectStatus{Name: "demo", Running: true})
	s.SetSystemMetrics(metrics.SystemMetrics{Docker: metrics.DockerStats{CPU: 12}})

	snap := s.Snapshot()
	assert.True(t, snap.Project.Running)
	assert.Equal(t, 12.0, snap.System.Docker.CPU)
	assert.Equal(t, fixed, snap.Updated[DomainProject])
	assert.Equal(t, fixed, snap.Updated[DomainSystem])
	_, ok := snap.Updated[DomainDatabase]
	assert.False(t, ok)
	assert.True(t, s.ProjectRunning())
}

func TestConcurrentWriters(t *testing.T) {
	s := New()
	s.SetContainers([]Container{{ID: "a"}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			s.UpsertContainer(Container{ID: "a", State: "running"})
		}()
		go func() {
			defer wg.Done()
			s.SetDatabase(Database{Stats: DatabaseStats{Connections: 1}})
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()

	assert.Equal(t, "running", s.Containers()[0].State)
}
