package middleware

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/logger"
)

// LoggingConfig configures the request logging middleware.
type LoggingConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool

	// Logger is the slog logger to use (default: slog.Default())
	Logger *slog.Logger

	// LogLevel for successful requests (default: slog.LevelInfo)
	LogLevel slog.Level

	// LogRequest logs a line when the request arrives (default: false)
	LogRequest bool

	// LogHeaders adds request headers to the completion line
	LogHeaders bool

	// SensitiveHeaders are redacted when LogHeaders is set
	SensitiveHeaders []string

	// SlowRequestThreshold logs slow requests at warning level (default: 5s).
	// Streaming responses are never reported as slow.
	SlowRequestThreshold time.Duration

	// Component name for structured logging
	Component string
}

// Logging creates a request logging middleware with default configuration.
func Logging[C handler.Context]() handler.Middleware[C] {
	return LoggingWithConfig[C](LoggingConfig{})
}

// LoggingWithLogger creates a logging middleware with a custom logger.
func LoggingWithLogger[C handler.Context](log *slog.Logger) handler.Middleware[C] {
	return LoggingWithConfig[C](LoggingConfig{Logger: log})
}

// LoggingWithConfig creates a request logging middleware with custom configuration.
// One line is written when the response finishes, carrying status, size and
// duration. Errors returned by the response are logged with the status the
// error handler will send.
func LoggingWithConfig[C handler.Context](cfg LoggingConfig) handler.Middleware[C] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.LogLevel == 0 {
		cfg.LogLevel = slog.LevelInfo
	}

	if cfg.SensitiveHeaders == nil {
		cfg.SensitiveHeaders = []string{
			"Authorization",
			"Cookie",
			"Set-Cookie",
			"X-Api-Key",
			"X-Auth-Token",
		}
	}

	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}

	if cfg.Component == "" {
		cfg.Component = "http"
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			start := time.Now()
			req := ctx.Request()

			attrs := []slog.Attr{
				logger.Component(cfg.Component),
				logger.Method(req.Method),
				logger.Path(req.URL.Path),
				logger.Query(req.URL.RawQuery),
				logger.RemoteAddr(req.RemoteAddr),
				logger.UserAgent(req.UserAgent()),
			}

			if cfg.LogHeaders {
				headers := make(map[string]any, len(req.Header))
				for key, values := range req.Header {
					switch {
					case slices.ContainsFunc(cfg.SensitiveHeaders, func(h string) bool { return strings.EqualFold(h, key) }):
						headers[key] = "[REDACTED]"
					case len(values) == 1:
						headers[key] = values[0]
					default:
						headers[key] = values
					}
				}
				attrs = append(attrs, slog.Any("request_headers", headers))
			}

			if cfg.LogRequest {
				cfg.Logger.LogAttrs(req.Context(), slog.LevelDebug, "HTTP request started",
					append(attrs, logger.Event("request"))...)
			}

			response := next(ctx)

			return func(w http.ResponseWriter, r *http.Request) error {
				wrapped := &responseWriter{ResponseWriter: w}
				err := response(wrapped, r)

				duration := time.Since(start)
				status := wrapped.status
				if err != nil && !wrapped.written {
					status = statusFromError(err)
				}
				if status == 0 {
					status = http.StatusOK
				}

				respAttrs := append(slices.Clone(attrs),
					logger.Event("response"),
					logger.StatusCode(status),
					logger.BytesOut(wrapped.size),
					logger.Duration(duration),
				)

				level := cfg.LogLevel
				switch {
				case status >= 500:
					level = slog.LevelError
					respAttrs = append(respAttrs, logger.Error(err))
				case status >= 400:
					level = slog.LevelWarn
					respAttrs = append(respAttrs, logger.Error(err))
				case duration > cfg.SlowRequestThreshold && !wrapped.streaming():
					level = slog.LevelWarn
					respAttrs = append(respAttrs, slog.Bool("slow_request", true))
				}

				cfg.Logger.LogAttrs(r.Context(), level, "HTTP request completed", respAttrs...)
				return err
			}
		}
	}
}

func statusFromError(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// responseWriter captures status and size. It forwards Flush and Hijack so
// event streams and websocket upgrades keep working behind it.
type responseWriter struct {
	http.ResponseWriter
	status   int
	size     int64
	written  bool
	hijacked bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.status = statusCode
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		if !rw.written {
			rw.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijack not supported by %T", rw.ResponseWriter)
	}
	conn, brw, err := h.Hijack()
	if err == nil {
		rw.hijacked = true
		rw.written = true
		rw.status = http.StatusSwitchingProtocols
	}
	return conn, brw, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) streaming() bool {
	return rw.hijacked || strings.HasPrefix(rw.Header().Get("Content-Type"), "text/event-stream")
}
