// Package server exposes the engine over HTTP: the stats endpoints the
// aggregator backs, scheduler status and control, the store snapshot and
// Prometheus metrics.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nselfadmin/internal/encoding"
	apperrors "nselfadmin/internal/errors"
	"nselfadmin/internal/logger"
	"nselfadmin/internal/metrics"
	"nselfadmin/internal/scheduler"
	"nselfadmin/internal/store"
)

// Route paths.
const (
	PathHealth          = "/healthz"
	PathDockerStats     = "/api/docker/stats"
	PathSystemMetrics   = "/api/system/metrics"
	PathSchedulerStatus = "/api/scheduler/status"
	PathSchedulerSource = "/api/scheduler/sources/:name"
	PathSnapshot        = "/api/snapshot"
	PathMetrics         = "/metrics"
)

// StatsCollector returns the runtime-wide Docker stats.
type StatsCollector interface {
	Collect(ctx context.Context) metrics.DockerStats
}

// SourceController is the scheduler surface the API drives.
type SourceController interface {
	Status() []scheduler.SourceStatus
	SetInterval(name string, d time.Duration) error
	SetEnabled(name string, enabled bool) error
}

// HostCollector reads host-level metrics.
type HostCollector func(ctx context.Context) (metrics.HostMetrics, error)

// Deps are the engine parts the server reads from.
type Deps struct {
	Stats     StatsCollector
	Scheduler SourceController
	Store     *store.Store
	Host      HostCollector
	Version   string
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SourceUpdate is the body of PUT /api/scheduler/sources/:name.
// Omitted fields are left unchanged.
type SourceUpdate struct {
	Interval *string `json:"interval,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

type Server struct {
	app  *fiber.App
	deps Deps
}

// New builds the fiber app and registers routes.
func New(deps Deps) *Server {
	if deps.Host == nil {
		deps.Host = metrics.CollectHost
	}

	s := &Server{deps: deps}
	s.app = fiber.New(fiber.Config{
		AppName:               "nselfadmin",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())

	s.app.Get(PathHealth, s.health)

	api := s.app.Group("/api")
	api.Get("/docker/stats", s.dockerStats)
	api.Get("/system/metrics", s.systemMetrics)
	api.Get("/snapshot", s.snapshot)

	sched := api.Group("/scheduler")
	sched.Get("/status", s.schedulerStatus)
	sched.Put("/sources/:name", s.updateSource)

	s.app.Get(PathMetrics, adaptor.HTTPHandler(promhttp.Handler()))
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	logger.Info("API server listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// respond writes v in the envelope, as CBOR when the client asks for it.
func respond(c *fiber.Ctx, status int, body Response) error {
	ct, data, err := encoding.Encode(c.Get(fiber.HeaderAccept), body)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to encode response", err)
	}
	c.Set(fiber.HeaderContentType, ct)
	return c.Status(status).Send(data)
}

func ok(c *fiber.Ctx, data interface{}) error {
	return respond(c, fiber.StatusOK, Response{Success: true, Data: data})
}

// handleError maps coded errors to HTTP statuses.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if fe, isFiber := err.(*fiber.Error); isFiber {
		status = fe.Code
	} else {
		switch apperrors.CodeOf(err) {
		case apperrors.ErrCodeNotFound:
			status = fiber.StatusNotFound
		case apperrors.ErrCodeInvalidRequest:
			status = fiber.StatusBadRequest
		case apperrors.ErrCodeTimeout:
			status = fiber.StatusGatewayTimeout
		case apperrors.ErrCodeUnavailable:
			status = fiber.StatusServiceUnavailable
		}
	}
	if status >= fiber.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Method(), c.Path(), err)
	}
	return respond(c, status, Response{Success: false, Error: err.Error()})
}

func (s *Server) health(c *fiber.Ctx) error {
	return ok(c, fiber.Map{"status": "ok", "version": s.deps.Version})
}

func (s *Server) dockerStats(c *fiber.Ctx) error {
	return ok(c, s.deps.Stats.Collect(c.UserContext()))
}

// systemMetrics combines host metrics with Docker stats. A host read
// failure degrades to empty host metrics.
func (s *Server) systemMetrics(c *fiber.Ctx) error {
	ctx := c.UserContext()
	out := metrics.SystemMetrics{
		Docker:    s.deps.Stats.Collect(ctx),
		Timestamp: time.Now().UTC(),
	}
	host, err := s.deps.Host(ctx)
	if err != nil {
		logger.Warning("Host metrics unavailable: %v", err)
	}
	out.Host = host
	return ok(c, out)
}

func (s *Server) snapshot(c *fiber.Ctx) error {
	if s.deps.Store == nil {
		return apperrors.New(apperrors.ErrCodeUnavailable, "store not configured")
	}
	return ok(c, s.deps.Store.Snapshot())
}

func (s *Server) schedulerStatus(c *fiber.Ctx) error {
	if s.deps.Scheduler == nil {
		return apperrors.New(apperrors.ErrCodeUnavailable, "scheduler not configured")
	}
	return ok(c, s.deps.Scheduler.Status())
}

func (s *Server) updateSource(c *fiber.Ctx) error {
	if s.deps.Scheduler == nil {
		return apperrors.New(apperrors.ErrCodeUnavailable, "scheduler not configured")
	}
	name := c.Params("name")

	var req SourceUpdate
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid request body", err)
	}
	if req.Interval == nil && req.Enabled == nil {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "nothing to update")
	}

	if req.Interval != nil {
		d, err := time.ParseDuration(*req.Interval)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid interval", err)
		}
		if err := s.deps.Scheduler.SetInterval(name, d); err != nil {
			return err
		}
	}
	if req.Enabled != nil {
		if err := s.deps.Scheduler.SetEnabled(name, *req.Enabled); err != nil {
			return err
		}
	}

	for _, st := range s.deps.Scheduler.Status() {
		if st.Name == name {
			return ok(c, st)
		}
	}
	return apperrors.NewWithContext(apperrors.ErrCodeNotFound, "unknown source", map[string]any{"source": name})
}
