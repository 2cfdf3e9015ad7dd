package router

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/keyfeed/core/handler"
)

// Option configures a Router during creation.
type Option[C handler.Context] func(*mux[C])

// WithErrorHandler sets the handler for routing, handler and render errors.
func WithErrorHandler[C handler.Context](h handler.ErrorHandler[C]) Option[C] {
	return func(m *mux[C]) {
		if h != nil {
			m.errorHandler = h
		}
	}
}

// WithMiddleware adds router-wide middleware.
func WithMiddleware[C handler.Context](middlewares ...handler.Middleware[C]) Option[C] {
	return func(m *mux[C]) {
		m.middlewares = append(m.middlewares, middlewares...)
	}
}

// WithContextFactory sets how the per-request context is built.
// Required for context types other than *Context.
func WithContextFactory[C handler.Context](f func(http.ResponseWriter, *http.Request, map[string]string) C) Option[C] {
	return func(m *mux[C]) {
		m.newContext = f
	}
}

// WithLogger sets the logger used for panics that cannot be reported to the client.
func WithLogger[C handler.Context](logger *slog.Logger) Option[C] {
	return func(m *mux[C]) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStrictSlash makes "/path/" redirect to "/path" and vice versa.
func WithStrictSlash[C handler.Context](enabled bool) Option[C] {
	return func(m *mux[C]) {
		m.router.StrictSlash(enabled)
	}
}
