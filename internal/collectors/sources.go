package collectors

import (
	"context"

	constants "nselfadmin/config"
	"nselfadmin/internal/config"
	"nselfadmin/internal/metrics"
	"nselfadmin/internal/scheduler"
	"nselfadmin/internal/store"
)

// Adapters binds a client to the store it writes into.
type Adapters struct {
	client *Client
	store  *store.Store
}

func NewAdapters(client *Client, st *store.Store) *Adapters {
	return &Adapters{client: client, store: st}
}

// FetchProjectStatus replaces the project status.
func (a *Adapters) FetchProjectStatus(ctx context.Context) error {
	status, err := Fetch[store.ProjectStatus](ctx, a.client, constants.PROJECT_STATUS_PATH)
	if err != nil {
		return err
	}
	a.store.SetProjectStatus(status)
	return nil
}

// FetchSystemMetrics replaces the system metrics.
func (a *Adapters) FetchSystemMetrics(ctx context.Context) error {
	m, err := Fetch[metrics.SystemMetrics](ctx, a.client, constants.SYSTEM_METRICS_PATH)
	if err != nil {
		return err
	}
	a.store.SetSystemMetrics(m)
	return nil
}

// FetchContainers replaces the container list.
func (a *Adapters) FetchContainers(ctx context.Context) error {
	containers, err := Fetch[[]store.Container](ctx, a.client, constants.CONTAINERS_PATH)
	if err != nil {
		return err
	}
	a.store.SetContainers(containers)
	return nil
}

func (a *Adapters) FetchContainerStats(ctx context.Context) error {
	stats, err := Fetch[[]store.ContainerStats](ctx, a.client, constants.CONTAINER_STATS_PATH)
	if err != nil {
		return err
	}
	a.store.SetContainerStats(stats)
	return nil
}

// FetchDatabase replaces database stats and tables together.
func (a *Adapters) FetchDatabase(ctx context.Context) error {
	db, err := Fetch[store.Database](ctx, a.client, constants.DATABASE_STATS_PATH)
	if err != nil {
		return err
	}
	a.store.SetDatabase(db)
	return nil
}

// Sources returns the default source table in start order, with enabled
// flags and intervals taken from cfg.
func (a *Adapters) Sources(cfg *config.Config) []scheduler.Source {
	table := []struct {
		name     string
		fetch    scheduler.FetchFunc
		needsRun bool
	}{
		{constants.SOURCE_PROJECT, a.FetchProjectStatus, false},
		{constants.SOURCE_SYSTEM, a.FetchSystemMetrics, false},
		{constants.SOURCE_CONTAINERS, a.FetchContainers, true},
		{constants.SOURCE_CONTAINER_STATS, a.FetchContainerStats, true},
		{constants.SOURCE_DATABASE, a.FetchDatabase, true},
	}

	sources := make([]scheduler.Source, 0, len(table))
	for _, entry := range table {
		sc := cfg.Source(entry.name)
		src := scheduler.Source{
			Name:     entry.name,
			Enabled:  sc.Enabled,
			Interval: sc.Interval,
			Fetch:    entry.fetch,
		}
		if entry.needsRun {
			src.Precondition = a.store.ProjectRunning
		}
		sources = append(sources, src)
	}
	return sources
}
