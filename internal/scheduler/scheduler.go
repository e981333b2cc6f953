// Package scheduler runs named data sources at independent intervals and
// owns the lifecycle of the push channel. A failed fetch never stops a
// loop: the next tick is the retry, and Status().Age is how staleness shows.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	constants "nselfadmin/config"
	apperrors "nselfadmin/internal/errors"
	"nselfadmin/internal/logger"
	"nselfadmin/internal/telemetry"
)

// FetchFunc fetches one source and writes the result into the store.
type FetchFunc func(ctx context.Context) error

// Source describes a polled data domain.
type Source struct {
	Name     string
	Enabled  bool
	Interval time.Duration
	Fetch    FetchFunc
	// Precondition, when set, is checked before each fetch; false skips the tick.
	Precondition func() bool
}

// Channel is the push stream whose lifecycle follows the scheduler.
type Channel interface {
	Start(ctx context.Context)
	Stop()
}

type dataSource struct {
	name         string
	enabled      bool
	interval     time.Duration
	lastFetch    time.Time
	fetch        FetchFunc
	precondition func() bool

	// cancel stops the source's loop; nil while not scheduled.
	cancel context.CancelFunc
}

// Scheduler is safe for concurrent use.
type Scheduler struct {
	lifecycle sync.Mutex // serializes Start and Stop

	mu      sync.Mutex
	sources map[string]*dataSource
	order   []string
	channel Channel
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	fetchTimeout time.Duration
	now          func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithClock replaces time.Now for LastFetch and Age.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a stopped scheduler. channel may be nil.
func New(channel Channel, opts ...Option) *Scheduler {
	s := &Scheduler{
		sources:      make(map[string]*dataSource),
		channel:      channel,
		fetchTimeout: constants.DEFAULT_FETCH_TIMEOUT,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a source. Sources are started in registration order.
func (s *Scheduler) Register(src Source) error {
	if src.Name == "" || src.Fetch == nil {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "source needs a name and a fetch function")
	}
	if src.Interval <= 0 {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest, "interval must be positive",
			map[string]any{"source": src.Name, "interval": src.Interval.String()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sources[src.Name]; exists {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest, "source already registered",
			map[string]any{"source": src.Name})
	}
	ds := &dataSource{
		name:         src.Name,
		enabled:      src.Enabled,
		interval:     src.Interval,
		fetch:        src.Fetch,
		precondition: src.Precondition,
	}
	s.sources[src.Name] = ds
	s.order = append(s.order, src.Name)

	if s.running && ds.enabled {
		s.schedule(ds, true)
	}
	return nil
}

// Start opens the push channel and schedules every enabled source with an
// immediate first fetch. It returns without waiting for any I/O and does
// nothing if already running.
func (s *Scheduler) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if s.channel != nil {
		s.channel.Start(s.ctx)
	}

	for _, name := range s.order {
		if ds := s.sources[name]; ds.enabled {
			s.schedule(ds, true)
		}
	}
	logger.Info("Scheduler started with %d sources", len(s.order))
}

// Stop cancels every loop, closes the push channel and waits for loops to
// exit. Calling Stop on a stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	for _, ds := range s.sources {
		ds.cancel = nil
	}
	s.mu.Unlock()

	if s.channel != nil {
		s.channel.Stop()
	}
	s.wg.Wait()
	logger.Info("Scheduler stopped")
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetInterval changes a source's cadence. A scheduled source is
// rescheduled so the next tick comes d after the call.
func (s *Scheduler) SetInterval(name string, d time.Duration) error {
	if d <= 0 {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest, "interval must be positive",
			map[string]any{"source": name, "interval": d.String()})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.lookup(name)
	if err != nil {
		return err
	}
	ds.interval = d

	if s.running && ds.cancel != nil {
		ds.cancel()
		s.schedule(ds, false)
	}
	logger.Info("Source %s interval set to %s", name, d)
	return nil
}

// SetEnabled turns a source on or off. Enabling a source while running
// fetches immediately and schedules it; disabling cancels its loop.
func (s *Scheduler) SetEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.lookup(name)
	if err != nil {
		return err
	}
	ds.enabled = enabled

	switch {
	case enabled && s.running && ds.cancel == nil:
		s.schedule(ds, true)
	case !enabled && ds.cancel != nil:
		ds.cancel()
		ds.cancel = nil
	}
	logger.Info("Source %s enabled=%t", name, enabled)
	return nil
}

// Status returns a diagnostic view of every source in registration order.
func (s *Scheduler) Status() []SourceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]SourceStatus, 0, len(s.order))
	for _, name := range s.order {
		ds := s.sources[name]
		st := SourceStatus{
			Name:      ds.name,
			Enabled:   ds.enabled,
			Scheduled: ds.cancel != nil,
			Interval:  ds.interval,
			LastFetch: ds.lastFetch,
			Age:       NeverFetched,
		}
		if !ds.lastFetch.IsZero() {
			st.Age = now.Sub(ds.lastFetch)
		}
		out = append(out, st)
	}
	return out
}

func (s *Scheduler) lookup(name string) (*dataSource, error) {
	ds, ok := s.sources[name]
	if !ok {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeNotFound, "unknown source",
			map[string]any{"source": name})
	}
	return ds, nil
}

// schedule starts a loop for ds. Caller holds s.mu and s.running is true.
func (s *Scheduler) schedule(ds *dataSource, immediate bool) {
	loopCtx, cancel := context.WithCancel(s.ctx)
	ds.cancel = cancel

	s.wg.Add(1)
	go s.loop(loopCtx, s.ctx, ds, ds.interval, immediate)
}

// loop ticks ds until loopCtx is cancelled. Fetches derive from rootCtx so
// rescheduling does not abort a fetch already in flight.
func (s *Scheduler) loop(loopCtx, rootCtx context.Context, ds *dataSource, interval time.Duration, immediate bool) {
	defer s.wg.Done()

	if immediate {
		s.tick(loopCtx, rootCtx, ds)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			s.tick(loopCtx, rootCtx, ds)
		}
	}
}

func (s *Scheduler) tick(loopCtx, rootCtx context.Context, ds *dataSource) {
	if loopCtx.Err() != nil {
		return
	}

	if ds.precondition != nil && !ds.precondition() {
		logger.Debug("[%s] precondition not met, skipping tick", ds.name)
		telemetry.RecordFetch(ds.name, telemetry.ResultSkipped)
		return
	}

	ctx, cancel := context.WithTimeout(rootCtx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.safeFetch(ctx, ds)
	telemetry.FetchDuration.WithLabelValues(ds.name).Observe(time.Since(start).Seconds())
	telemetry.RecordFetch(ds.name, result)

	if err != nil {
		logger.Warning("[%s] fetch failed: %v", ds.name, err)
		return
	}

	s.mu.Lock()
	ds.lastFetch = s.now()
	s.mu.Unlock()
}

// safeFetch runs the fetch and turns a panic into an error.
func (s *Scheduler) safeFetch(ctx context.Context, ds *dataSource) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[%s] fetch panicked: %v\n%s", ds.name, r, debug.Stack())
			result = telemetry.ResultPanic
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := ds.fetch(ctx); err != nil {
		return telemetry.ResultError, err
	}
	return telemetry.ResultSuccess, nil
}
