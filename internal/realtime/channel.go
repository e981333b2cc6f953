// Package realtime subscribes to the collaborator's push stream and applies
// each event to the store as a targeted partial update. Polling stays the
// backstop: a lost connection only delays updates until the next tick.
package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	constants "nselfadmin/config"
	"nselfadmin/internal/logger"
	"nselfadmin/internal/store"
	"nselfadmin/internal/telemetry"
)

const handshakeTimeout = 10 * time.Second

// Channel is a websocket subscription with an idempotent lifecycle.
type Channel struct {
	url    string
	token  string
	store  *store.Store
	dialer *websocket.Dialer

	reconnect   bool
	minInterval time.Duration
	maxInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Channel.
type Option func(*Channel)

// WithToken sends a bearer token on the handshake.
func WithToken(token string) Option {
	return func(c *Channel) { c.token = token }
}

// WithReconnect controls whether a dropped connection is redialed, and the
// backoff bounds between attempts.
func WithReconnect(enabled bool, initial, limit time.Duration) Option {
	return func(c *Channel) {
		c.reconnect = enabled
		if initial > 0 {
			c.minInterval = initial
		}
		if limit > 0 {
			c.maxInterval = limit
		}
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

// New creates a stopped channel for url writing into st.
func New(url string, st *store.Store, opts ...Option) *Channel {
	c := &Channel{
		url:         url,
		store:       st,
		dialer:      &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
		reconnect:   true,
		minInterval: constants.DEFAULT_RECONNECT_INITIAL,
		maxInterval: constants.DEFAULT_RECONNECT_MAX,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start subscribes in the background. A second Start is a no-op.
func (c *Channel) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
}

// Stop closes the connection and waits for the read loop to exit.
// Stopping a stopped channel is a no-op.
func (c *Channel) Stop() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	done := c.done
	c.mu.Unlock()

	<-done
}

func (c *Channel) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.minInterval
	b.MaxInterval = c.maxInterval
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	b := c.newBackOff()
	for {
		conn, err := c.dial(ctx)
		if err == nil {
			b.Reset()
			logger.Info("Push stream connected: %s", c.url)
			telemetry.RealtimeConnected.Set(1)
			err = c.readLoop(ctx, conn)
			telemetry.RealtimeConnected.Set(0)
		}

		if ctx.Err() != nil {
			return
		}
		if !c.reconnect {
			logger.Warning("Push stream closed, not reconnecting: %v", err)
			return
		}

		wait := b.NextBackOff()
		logger.Warning("Push stream lost: %v (retrying in %s)", err, wait.Round(time.Millisecond))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		telemetry.RealtimeReconnects.Inc()
	}
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", constants.HEADER_USER_AGENT)
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// readLoop applies messages until the connection fails or ctx is done.
// The connection is always closed on return.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(mt, data)
	}
}
