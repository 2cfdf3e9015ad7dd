package server

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/keyfeed/core/logger"
)

// Server wraps http.Server with graceful shutdown for long-lived streams.
// Stop cancels request contexts so SSE and websocket handlers return before
// the shutdown deadline. Safe for concurrent use.
type Server struct {
	mu             sync.RWMutex
	addr           string
	listener       net.Listener
	server         *http.Server
	logger         *slog.Logger
	shutdown       time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
	maxHeaderBytes int
	tlsConfig      *tls.Config
	running        bool
	ready          chan struct{}
	readyOnce      sync.Once
}

// New creates a Server listening on addr.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:           addr,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		shutdown:       DefaultShutdownTimeout,
		readTimeout:    DefaultReadTimeout,
		writeTimeout:   DefaultWriteTimeout,
		idleTimeout:    DefaultIdleTimeout,
		maxHeaderBytes: DefaultMaxHeaderBytes,
		ready:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start listens and serves until the context is cancelled or serving fails.
// On cancellation it shuts down gracefully and returns ctx.Err().
func (s *Server) Start(ctx context.Context, handler http.Handler) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return errors.Join(ErrListen, err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}

	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       s.idleTimeout,
		MaxHeaderBytes:    s.maxHeaderBytes,
		TLSConfig:         s.tlsConfig,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	srv.RegisterOnShutdown(cancelBase)

	s.server = srv
	s.listener = ln
	s.running = true
	s.readyOnce.Do(func() { close(s.ready) })
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "starting server",
		logger.Component("server"),
		slog.String("addr", ln.Addr().String()),
		slog.Bool("tls", s.tlsConfig != nil),
	)

	errCh := make(chan error, 1)
	go func() {
		defer cancelBase()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Join(ErrHTTPServer, err)
		}
	}()

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		// Run may have called Stop before the listener was bound.
		if err := s.Stop(); err != nil {
			s.logger.Error("failed to stop server after context cancellation",
				logger.Component("server"), logger.Error(err))
		}
		return ctx.Err()
	}
}

// Addr returns the bound listen address once the server has started,
// otherwise the configured address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Stop gracefully shuts down the server using the configured timeout.
// It is a no-op when the server is not running.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server gracefully",
		logger.Component("server"),
		slog.Duration("timeout", s.shutdown),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.running = false

	if err != nil {
		s.logger.Error("server shutdown error", logger.Component("server"), logger.Error(err))
		return errors.Join(ErrHTTPShutdown, err)
	}

	s.logger.Info("server shutdown complete", logger.Component("server"))
	return nil
}

// Run returns a function for errgroup.Group.Go that serves until ctx is
// cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx, handler)
		}()

		select {
		case <-ctx.Done():
			if stopErr := s.Stop(); stopErr != nil {
				s.logger.Error("failed to stop server during context cancellation",
					logger.Component("server"), logger.Error(stopErr))
			}
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}
