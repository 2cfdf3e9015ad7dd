// Package keyfeed wires the key-value service, the HTTP API and the server
// into one runnable application.
package keyfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/keyfeed/api"
	"github.com/dmitrymomot/keyfeed/core/config"
	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/keyvalue"
	"github.com/dmitrymomot/keyfeed/core/kvstore"
	"github.com/dmitrymomot/keyfeed/core/logger"
	"github.com/dmitrymomot/keyfeed/core/metrics"
	"github.com/dmitrymomot/keyfeed/core/notify"
	"github.com/dmitrymomot/keyfeed/core/response"
	"github.com/dmitrymomot/keyfeed/core/router"
	"github.com/dmitrymomot/keyfeed/core/server"
	"github.com/dmitrymomot/keyfeed/middleware"
)

type App struct {
	config  Config
	logger  *slog.Logger
	broker  *notify.Broker
	metrics *metrics.Collector
	service *keyvalue.Service
	router  router.Router[*router.Context]
	server  *server.Server
}

type AppOption func(*App) error

// NewApp builds the application. Config is loaded from the environment
// unless WithConfig is given.
func NewApp(opts ...AppOption) (*App, error) {
	app := &App{}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config.AppName == "" {
		if err := config.Load(&app.config); err != nil {
			return nil, err
		}
	}

	if app.logger == nil {
		level, err := logger.ParseLevel(app.config.LogLevel)
		if err != nil {
			return nil, err
		}
		log, err := newLogger(app.config, level)
		if err != nil {
			return nil, err
		}
		app.logger = log
	}

	overflow, err := notify.ParseOverflowPolicy(app.config.Overflow)
	if err != nil {
		return nil, err
	}

	if app.config.MetricsEnabled {
		app.metrics = metrics.New()
	}

	brokerOpts := []notify.Option{
		notify.WithLogger(app.logger),
		notify.WithQueueLimit(app.config.QueueLimit),
		notify.WithOverflow(overflow),
		notify.WithShards(app.config.Shards),
	}
	if app.metrics != nil {
		brokerOpts = append(brokerOpts, notify.WithMetrics(app.metrics))
	}
	app.broker = notify.NewBroker(brokerOpts...)

	app.service = keyvalue.NewService(kvstore.New(), app.broker, keyvalue.WithLogger(app.logger))

	if app.router == nil {
		app.router = router.New(
			router.WithErrorHandler(response.ErrorHandler[*router.Context]),
			router.WithLogger[*router.Context](app.logger),
		)
	}
	app.routes()

	if app.server == nil {
		s, err := server.NewFromConfig(app.config.Server, server.WithLogger(app.logger))
		if err != nil {
			return nil, err
		}
		app.server = s
	}

	return app, nil
}

func newLogger(cfg Config, level slog.Level) (*slog.Logger, error) {
	opts := []logger.Option{logger.WithContextExtractors(middleware.RequestIDExtractor())}
	switch cfg.Env {
	case "production":
		opts = append(opts, logger.WithProduction(cfg.AppName))
	case "staging":
		opts = append(opts, logger.WithStaging(cfg.AppName))
	default:
		opts = append(opts, logger.WithDevelopment(cfg.AppName))
	}

	// An explicit format overrides the environment preset.
	switch strings.ToLower(cfg.LogFormat) {
	case "":
	case "text":
		opts = append(opts, logger.WithTextFormatter())
	case "json":
		opts = append(opts, logger.WithJSONFormatter())
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	return logger.New(append(opts, logger.WithLevel(level))...), nil
}

func (a *App) routes() {
	a.router.Use(middleware.RequestIDWithConfig[*router.Context](middleware.RequestIDConfig{UseExisting: true}))
	a.router.Use(middleware.LoggingWithConfig[*router.Context](middleware.LoggingConfig{
		Logger: a.logger,
		Skip: func(ctx handler.Context) bool {
			return strings.HasPrefix(ctx.Request().URL.Path, "/health/") || ctx.Request().URL.Path == "/metrics"
		},
	}))
	if a.metrics != nil {
		a.router.Use(middleware.Metrics[*router.Context](a.metrics))
	}
	a.router.Use(middleware.CORSWithConfig[*router.Context](middleware.CORSConfig{
		AllowOrigins:  a.config.CORSOrigins,
		ExposeHeaders: []string{"X-Request-ID"},
	}))

	opts := []api.Option{
		api.WithLogger(a.logger),
		api.WithKeepAlive(a.config.SSEKeepAlive),
		api.WithReconnectTime(a.config.SSERetry),
		api.WithWebSocketPing(a.config.WSPingInterval),
		api.WithBodyLimit(a.config.BodyLimit),
		api.WithReadinessChecks(a.broker.Healthcheck),
	}
	if a.config.SSEEventIDs {
		opts = append(opts, api.WithEventIDs())
	}
	if a.metrics != nil {
		opts = append(opts, api.WithMetricsHandler(a.metrics.Handler()))
	}

	api.Register(a.router, a.service, opts...)
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Service returns the key-value service.
func (a *App) Service() *keyvalue.Service {
	return a.service
}

// Addr returns the server's bound address once it is listening.
func (a *App) Addr() string {
	return a.server.Addr()
}

// Ready is closed once the server is listening.
func (a *App) Ready() <-chan struct{} {
	return a.server.Ready()
}

// Run serves until ctx is cancelled. On shutdown open streams are ended by
// the server, then the broker is closed.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting keyfeed",
		logger.Component("app"),
		slog.String("env", a.config.Env),
		slog.Int("queue_limit", a.config.QueueLimit),
		slog.String("overflow", a.config.Overflow),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.server.Run(gctx, a.router))

	if a.config.StatsInterval > 0 {
		g.Go(func() error {
			a.logStats(gctx, a.config.StatsInterval)
			return nil
		})
	}

	err := g.Wait()
	if cerr := a.broker.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}

	a.logger.Info("keyfeed stopped", logger.Component("app"), logger.Error(err))
	return err
}

func (a *App) logStats(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := a.broker.Stats()
			a.logger.InfoContext(ctx, "broker stats",
				logger.Component("notify"),
				logger.Count("keys", st.Keys),
				logger.Count("subscriptions", st.Subscriptions),
				slog.Uint64("published", st.Published),
				slog.Uint64("delivered", st.Delivered),
				slog.Uint64("dropped", st.Dropped),
			)
		}
	}
}

// WithConfig uses cfg instead of loading from the environment.
func WithConfig(cfg Config) AppOption {
	return func(app *App) error {
		if cfg.AppName == "" {
			return errors.New("config app name cannot be empty")
		}
		app.config = cfg
		return nil
	}
}

func WithLogger(logger *slog.Logger) AppOption {
	return func(app *App) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		app.logger = logger
		return nil
	}
}

func WithRouter(router router.Router[*router.Context]) AppOption {
	return func(app *App) error {
		if router == nil {
			return errors.New("router cannot be nil")
		}
		app.router = router
		return nil
	}
}

func WithServer(server *server.Server) AppOption {
	return func(app *App) error {
		if server == nil {
			return errors.New("server cannot be nil")
		}
		app.server = server
		return nil
	}
}
