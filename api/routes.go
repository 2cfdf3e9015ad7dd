package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/health"
	"github.com/dmitrymomot/keyfeed/core/logger"
	"github.com/dmitrymomot/keyfeed/core/response"
	"github.com/dmitrymomot/keyfeed/core/router"
	"github.com/dmitrymomot/keyfeed/middleware"
)

type options struct {
	logger         *slog.Logger
	keepAlive      time.Duration
	reconnect      time.Duration
	eventIDs       bool
	wsPing         time.Duration
	wsWriteTimeout time.Duration
	bodyLimit      int64
	checks         []health.Check
	metrics        http.Handler
}

// Option configures Register.
type Option func(*options)

// WithLogger sets the logger for stream failures and readiness checks.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithKeepAlive sets the SSE keep-alive comment interval. Zero disables it.
func WithKeepAlive(d time.Duration) Option {
	return func(o *options) {
		o.keepAlive = d
	}
}

// WithReconnectTime sends an SSE retry field to clients.
func WithReconnectTime(d time.Duration) Option {
	return func(o *options) {
		o.reconnect = d
	}
}

// WithEventIDs adds a random UUID id field to every SSE event.
func WithEventIDs() Option {
	return func(o *options) {
		o.eventIDs = true
	}
}

// WithWebSocketPing sets the websocket ping interval. Zero disables pings.
func WithWebSocketPing(d time.Duration) Option {
	return func(o *options) {
		o.wsPing = d
	}
}

// WithWebSocketWriteTimeout bounds each websocket frame write.
func WithWebSocketWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.wsWriteTimeout = d
		}
	}
}

// WithBodyLimit caps the POST /trigger-event body.
func WithBodyLimit(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.bodyLimit = n
		}
	}
}

// WithReadinessChecks adds checks run by GET /health/ready.
func WithReadinessChecks(checks ...health.Check) Option {
	return func(o *options) {
		o.checks = append(o.checks, checks...)
	}
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) {
		o.metrics = h
	}
}

// Register mounts the API routes on r.
func Register[C handler.Context](r router.Router[C], svc Service, opts ...Option) {
	o := &options{
		logger:         logger.Nop(),
		keepAlive:      response.DefaultSSEKeepAlive,
		wsWriteTimeout: response.DefaultWSWriteTimeout,
		bodyLimit:      middleware.DefaultBodyLimit,
	}
	for _, opt := range opts {
		opt(o)
	}

	sseOpts := []response.EventOption{response.WithKeepAlive(o.keepAlive)}
	if o.keepAlive <= 0 {
		sseOpts = []response.EventOption{response.WithoutKeepAlive()}
	}
	if o.reconnect > 0 {
		sseOpts = append(sseOpts, response.WithReconnectTime(o.reconnect))
	}
	if o.eventIDs {
		sseOpts = append(sseOpts, response.WithEventIDGenerator(func(string) string {
			return uuid.NewString()
		}))
	}

	wsOpts := []response.WebSocketOption{
		response.WithWSAllowAnyOrigin(),
		response.WithWSWriteTimeout(o.wsWriteTimeout),
		response.WithWSPingInterval(o.wsPing),
	}

	r.With(middleware.BodyLimitWithSize[C](o.bodyLimit)).
		Post("/trigger-event", TriggerEvent[C](svc))
	r.Get("/events/{key}", Events[C](svc, o.logger, sseOpts...))
	r.Get("/ws/{key}", WebSocket[C](svc, o.logger, wsOpts...))
	r.Get("/values/{key}", GetValue[C](svc))
	r.Get("/keys", ListKeys[C](svc))

	// Preflight requests need a matching route; the CORS middleware answers them.
	for _, pattern := range []string{"/trigger-event", "/events/{key}", "/ws/{key}", "/values/{key}", "/keys"} {
		r.Options(pattern, health.NoContent[C])
	}

	r.Route("/health", func(hr router.Router[C]) {
		hr.Get("/live", health.Liveness[C])
		hr.Get("/ready", health.Readiness[C](o.logger, o.checks...))
	})

	if o.metrics != nil {
		metrics := o.metrics
		r.Get("/metrics", func(C) handler.Response {
			return response.Handler(metrics)
		})
	}
}
