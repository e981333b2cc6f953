// Package store holds the consumer-facing snapshot that scheduler ticks and
// push events write into. Each domain is written independently and the last
// writer wins; getters return copies.
package store

import (
	"sync"
	"time"

	"nselfadmin/internal/metrics"
)

// Domain names one independently updated part of the snapshot.
type Domain string

const (
	DomainContainers     Domain = "containers"
	DomainContainerStats Domain = "container_stats"
	DomainDatabase       Domain = "database"
	DomainSystem         Domain = "system"
	DomainProject        Domain = "project"
)

// Container is one entry of the container list.
type Container struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	State   string `json:"state"`
	Status  string `json:"status"`
	Health  string `json:"health,omitempty"`
	Ports   string `json:"ports,omitempty"`
	Created string `json:"created,omitempty"`
}

// merge copies the non-empty fields of u onto c.
func (c *Container) merge(u Container) {
	for dst, src := range map[*string]string{
		&c.Name:    u.Name,
		&c.Image:   u.Image,
		&c.State:   u.State,
		&c.Status:  u.Status,
		&c.Health:  u.Health,
		&c.Ports:   u.Ports,
		&c.Created: u.Created,
	} {
		if src != "" {
			*dst = src
		}
	}
}

// ContainerStats is the resource usage of one container.
type ContainerStats struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CPU           float64 `json:"cpu"`
	MemoryUsed    float64 `json:"memory_used"`
	MemoryLimit   float64 `json:"memory_limit"`
	MemoryPercent float64 `json:"memory_percent"`
	NetworkRX     float64 `json:"network_rx"`
	NetworkTX     float64 `json:"network_tx"`
}

type DatabaseStats struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	Connections int    `json:"connections"`
	TableCount  int    `json:"table_count"`
}

type TableInfo struct {
	Schema    string `json:"schema"`
	Name      string `json:"name"`
	Rows      int64  `json:"rows"`
	SizeBytes int64  `json:"size_bytes"`
}

// Database is replaced as a whole: stats and tables always travel together.
type Database struct {
	Stats  DatabaseStats `json:"stats"`
	Tables []TableInfo   `json:"tables"`
}

// ProjectStatus describes the managed project. Running gates the
// container and database sources.
type ProjectStatus struct {
	Name        string `json:"name"`
	Environment string `json:"environment,omitempty"`
	Running     bool   `json:"running"`
	Status      string `json:"status"`
	Services    int    `json:"services"`
	Healthy     int    `json:"healthy"`
}

// Snapshot is a point-in-time copy of every domain.
type Snapshot struct {
	Containers     []Container               `json:"containers"`
	ContainerStats map[string]ContainerStats `json:"container_stats"`
	Database       Database                  `json:"database"`
	System         metrics.SystemMetrics     `json:"system"`
	Project        ProjectStatus             `json:"project"`
	Updated        map[Domain]time.Time      `json:"updated"`
}

// Store is safe for concurrent use.
type Store struct {
	mu             sync.RWMutex
	containers     []Container
	containerStats map[string]ContainerStats
	database       Database
	system         metrics.SystemMetrics
	project        ProjectStatus
	updated        map[Domain]time.Time
	now            func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		containerStats: make(map[string]ContainerStats),
		updated:        make(map[Domain]time.Time),
		now:            time.Now,
	}
}

func (s *Store) touch(d Domain) {
	s.updated[d] = s.now()
}

// SetContainers replaces the container list.
func (s *Store) SetContainers(containers []Container) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers = append([]Container(nil), containers...)
	s.touch(DomainContainers)
}

// UpsertContainer merges u into the entry with the same id. An id the list
// has not seen is ignored; only the full list fetch adds containers.
// It reports whether an entry was updated.
func (s *Store) UpsertContainer(u Container) bool {
	if u.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.containers {
		if s.containers[i].ID == u.ID {
			s.containers[i].merge(u)
			s.touch(DomainContainers)
			return true
		}
	}
	return false
}

func (s *Store) Containers() []Container {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Container(nil), s.containers...)
}

// SetContainerStats replaces the per-container stats, keyed by id.
func (s *Store) SetContainerStats(stats []ContainerStats) {
	byID := make(map[string]ContainerStats, len(stats))
	for _, st := range stats {
		if st.ID != "" {
			byID[st.ID] = st
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containerStats = byID
	s.touch(DomainContainerStats)
}

func (s *Store) ContainerStats() map[string]ContainerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ContainerStats, len(s.containerStats))
	for id, st := range s.containerStats {
		out[id] = st
	}
	return out
}

// SetDatabase replaces database stats and tables together.
func (s *Store) SetDatabase(db Database) {
	db.Tables = append([]TableInfo(nil), db.Tables...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.database = db
	s.touch(DomainDatabase)
}

func (s *Store) Database() Database {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db := s.database
	db.Tables = append([]TableInfo(nil), s.database.Tables...)
	return db
}

// SetSystemMetrics replaces the system metrics.
func (s *Store) SetSystemMetrics(m metrics.SystemMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system = m
	s.touch(DomainSystem)
}

func (s *Store) SystemMetrics() metrics.SystemMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system
}

func (s *Store) SetProjectStatus(p ProjectStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = p
	s.touch(DomainProject)
}

func (s *Store) ProjectStatus() ProjectStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project
}

// ProjectRunning is the precondition for sources that only make sense
// while the managed project is up.
func (s *Store) ProjectRunning() bool {
	return s.ProjectStatus().Running
}

// UpdatedAt returns when d was last written, zero if never.
func (s *Store) UpdatedAt(d Domain) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated[d]
}

// Snapshot copies every domain under one read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Containers:     append([]Container(nil), s.containers...),
		ContainerStats: make(map[string]ContainerStats, len(s.containerStats)),
		Database:       s.database,
		System:         s.system,
		Project:        s.project,
		Updated:        make(map[Domain]time.Time, len(s.updated)),
	}
	snap.Database.Tables = append([]TableInfo(nil), s.database.Tables...)
	for id, st := range s.containerStats {
		snap.ContainerStats[id] = st
	}
	for d, ts := range s.updated {
		snap.Updated[d] = ts
	}
	return snap
}
