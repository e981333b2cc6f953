package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	constants "nselfadmin/config"
	"nselfadmin/internal/collectors"
	"nselfadmin/internal/config"
	"nselfadmin/internal/docker"
	"nselfadmin/internal/logger"
	"nselfadmin/internal/metrics"
	"nselfadmin/internal/process"
	"nselfadmin/internal/realtime"
	"nselfadmin/internal/scheduler"
	"nselfadmin/internal/server"
	"nselfadmin/internal/service"
	"nselfadmin/internal/store"
	"nselfadmin/internal/telemetry"
)

const (
	shutdownTimeout = 10 * time.Second
	healthInterval  = 5 * time.Minute
)

// NewDaemonCmd runs the sync engine in the foreground. Service managers
// start it through "nselfadmin daemon".
func NewDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the sync engine in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger.Configure(cfg.Log.File, cfg.Log.Debug)

			lock, err := process.Acquire()
			if err != nil {
				if errors.Is(err, process.ErrAlreadyRunning) {
					return fmt.Errorf("daemon already running (pid file %s)", process.PIDFilePath())
				}
				return err
			}
			defer lock.Release()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return runDaemon(ctx, cfg)
		},
	}
}

// engine is the set of parts the daemon wires together.
type engine struct {
	store      *store.Store
	aggregator *metrics.Aggregator
	scheduler  *scheduler.Scheduler
	server     *server.Server
	exporter   *metrics.Exporter
}

// buildEngine wires the store, collectors, push channel, scheduler and API.
func buildEngine(cfg *config.Config) (*engine, error) {
	provider, err := docker.NewProvider(cfg.Runtime.Provider, cfg.Runtime.Binary)
	if err != nil {
		return nil, err
	}
	agg := metrics.NewAggregator(provider,
		metrics.WithTTL(cfg.Runtime.CacheTTL),
		metrics.WithStorageCapacity(cfg.Runtime.StorageCapacityGB),
	)

	st := store.New()
	client := collectors.NewClient(cfg.Collaborator.BaseURL, cfg.Collaborator.Token, cfg.Collaborator.Timeout)
	adapters := collectors.NewAdapters(client, st)

	var channel scheduler.Channel
	if cfg.Realtime.Enabled && cfg.Realtime.URL != "" {
		channel = realtime.New(cfg.Realtime.URL, st,
			realtime.WithToken(cfg.Collaborator.Token),
			realtime.WithReconnect(cfg.Realtime.Reconnect, cfg.Realtime.MinInterval, cfg.Realtime.MaxInterval),
		)
	}

	sched := scheduler.New(channel)
	for _, src := range adapters.Sources(cfg) {
		if err := sched.Register(src); err != nil {
			return nil, err
		}
	}

	srv := server.New(server.Deps{
		Stats:     agg,
		Scheduler: sched,
		Store:     st,
		Host:      metrics.CollectHost,
		Version:   currentVersion(),
	})

	return &engine{
		store:      st,
		aggregator: agg,
		scheduler:  sched,
		server:     srv,
		exporter:   &metrics.Exporter{},
	}, nil
}

func runDaemon(ctx context.Context, cfg *config.Config) (err error) {
	defer func() {
		logger.Info("=== DAEMON EXITING - PID: %d ===", os.Getpid())
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("=== PANIC DETECTED ===")
			logger.Error("Panic value: %v", r)
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			logger.Error("Stack trace:\n%s", string(buf[:n]))
			service.NotifyStopping()
			err = fmt.Errorf("daemon panic: %v", r)
		}
	}()

	logger.Info("=== DAEMON STARTING - PID: %d ===", os.Getpid())

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	telemetry.RegisterBuildInfo(currentVersion())

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("API listening on %s", cfg.Server.Listen)
		serverErr <- eng.server.Listen(cfg.Server.Listen)
	}()

	if cfg.OTel.Endpoint != "" {
		startExport(ctx, cfg, eng)
	}
	defer func() {
		if eng.exporter.Started() {
			if err := eng.exporter.Stop(); err != nil {
				logger.Warning("Failed to stop metrics export: %v", err)
			}
		}
	}()

	eng.scheduler.Start()

	logger.Info("Daemon initialized:")
	logger.Info("  Collaborator: %s", cfg.Collaborator.BaseURL)
	if cfg.Realtime.Enabled {
		logger.Info("  Push stream: %s (reconnect=%t)", cfg.Realtime.URL, cfg.Realtime.Reconnect)
	} else {
		logger.Info("  Push stream: disabled")
	}
	for _, st := range eng.scheduler.Status() {
		logger.Info("  Source %s: enabled=%t interval=%s", st.Name, st.Enabled, st.Interval)
	}

	service.NotifyReady()
	service.NotifyStatus("Syncing")

	watchdogCtx, cancelWatchdog := context.WithCancel(ctx)
	defer cancelWatchdog()
	go service.RunWatchdog(watchdogCtx, healthInterval, func() string {
		return daemonStatusLine(eng.scheduler.Status())
	})

	select {
	case <-ctx.Done():
		logger.Info("=== SIGNAL RECEIVED ===")
		logger.Info("Initiating graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("API server failed: %v", err)
		}
	}

	service.NotifyStopping()
	eng.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := eng.server.Shutdown(shutdownCtx); err != nil {
		logger.Warning("API shutdown: %v", err)
	}
	return nil
}

// startExport starts the OTLP exporter and keeps the aggregator's last
// snapshot fresh for its gauge callbacks.
func startExport(ctx context.Context, cfg *config.Config, eng *engine) {
	hostname, _ := os.Hostname()
	err := eng.exporter.Start(metrics.OTelConfig{
		Endpoint: cfg.OTel.Endpoint,
		Token:    cfg.OTel.Token,
		Insecure: cfg.OTel.Insecure,
		Interval: cfg.OTel.Interval,
		Hostname: hostname,
		Version:  currentVersion(),
	}, eng.aggregator)
	if err != nil {
		logger.Error("Failed to start metrics export: %v", err)
		return
	}
	logger.Info("  Metrics: sending via OTLP to %s", cfg.OTel.Endpoint)

	interval := cfg.OTel.Interval
	if interval <= 0 {
		interval = constants.DEFAULT_OTEL_INTERVAL
	}
	eng.aggregator.Collect(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				eng.aggregator.Collect(ctx)
			}
		}
	}()
}

// daemonStatusLine summarizes source freshness for systemctl status.
func daemonStatusLine(sources []scheduler.SourceStatus) string {
	enabled, fetched := 0, 0
	for _, s := range sources {
		if !s.Enabled {
			continue
		}
		enabled++
		if s.Fetched() {
			fetched++
		}
	}
	return fmt.Sprintf("Syncing: %d/%d sources fetched", fetched, enabled)
}
