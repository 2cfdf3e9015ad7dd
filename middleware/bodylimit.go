package middleware

import (
	"fmt"
	"net/http"

	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/response"
)

// Common size constants for convenience.
const (
	KB int64 = 1024
	MB       = 1024 * KB
)

// DefaultBodyLimit is the limit used when BodyLimitConfig.MaxSize is unset.
const DefaultBodyLimit = 64 * KB

// BodyLimitConfig configures the request body limit middleware.
type BodyLimitConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool

	// MaxSize is the maximum allowed size in bytes (default: 64KB)
	MaxSize int64

	// ErrorHandler builds the response for a declared Content-Length over the limit
	ErrorHandler func(ctx handler.Context, contentLength, maxSize int64) handler.Response
}

// BodyLimit creates a body limit middleware with the default limit.
func BodyLimit[C handler.Context]() handler.Middleware[C] {
	return BodyLimitWithConfig[C](BodyLimitConfig{})
}

// BodyLimitWithSize creates a body limit middleware with a specified size limit.
func BodyLimitWithSize[C handler.Context](maxSize int64) handler.Middleware[C] {
	return BodyLimitWithConfig[C](BodyLimitConfig{MaxSize: maxSize})
}

// BodyLimitWithConfig rejects requests whose Content-Length exceeds the limit
// and caps the body reader for the rest. Reading past the cap fails with
// *http.MaxBytesError, which handlers map to 413.
func BodyLimitWithConfig[C handler.Context](cfg BodyLimitConfig) handler.Middleware[C] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultBodyLimit
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ handler.Context, contentLength, maxSize int64) handler.Response {
			return response.Error(response.ErrRequestEntityTooLarge.
				WithMessage(fmt.Sprintf("Request body too large. Size: %s, maximum allowed: %s",
					formatBytes(contentLength), formatBytes(maxSize))).
				WithDetails(map[string]any{"limit": maxSize, "size": contentLength}))
		}
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			req := ctx.Request()
			if req.ContentLength > cfg.MaxSize {
				return cfg.ErrorHandler(ctx, req.ContentLength, cfg.MaxSize)
			}

			if req.Body != nil && req.Body != http.NoBody {
				req.Body = http.MaxBytesReader(ctx.ResponseWriter(), req.Body, cfg.MaxSize)
			}

			return next(ctx)
		}
	}
}

func formatBytes(bytes int64) string {
	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
