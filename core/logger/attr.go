package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Attribute helpers return an empty Attr for nil or empty input, so calls like
// log.Info("msg", logger.Error(err)) need no nil checks. slog drops empty Attrs.

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// ============================================================================
// Error Handling
// ============================================================================

// Errors groups multiple non-nil errors under the key "errors".
// Uses index-based keys to preserve error order. Returns empty Attr for all nil errors.
func Errors(errs ...error) slog.Attr {
	count := 0
	for _, err := range errs {
		if err != nil {
			count++
		}
	}
	if count == 0 {
		return slog.Attr{}
	}

	as := make([]slog.Attr, 0, count)
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// ============================================================================
// Timing
// ============================================================================

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Latency is an alias for Duration, commonly used in web contexts.
func Latency(d time.Duration) slog.Attr {
	return slog.Duration("latency", d)
}

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ============================================================================
// Identifiers
// ============================================================================

// ID creates a generic identifier attribute with a custom key.
func ID(key string, value any) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.Any(key, value)
}

// RequestID creates an attribute for HTTP request IDs.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// SubscriptionID creates an attribute for broker subscription IDs.
func SubscriptionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("subscription_id", id)
}

// StreamKey creates an attribute for the key a stream or update targets.
func StreamKey(key string) slog.Attr {
	return slog.String("key", key)
}

// ============================================================================
// Network and HTTP
// ============================================================================

// Method creates an attribute for HTTP methods.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Path creates an attribute for URL paths.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// Query creates an attribute for raw URL query strings.
func Query(q string) slog.Attr {
	if q == "" {
		return slog.Attr{}
	}
	return slog.String("query", q)
}

// StatusCode creates an attribute for HTTP status codes.
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// BytesOut creates an attribute for the number of response bytes written.
func BytesOut(n int64) slog.Attr {
	return slog.Int64("bytes_out", n)
}

// RemoteAddr creates an attribute for the peer address of a connection.
func RemoteAddr(addr string) slog.Attr {
	return slog.String("remote_addr", addr)
}

// UserAgent creates an attribute for user agent strings.
func UserAgent(ua string) slog.Attr {
	if ua == "" {
		return slog.Attr{}
	}
	return slog.String("user_agent", ua)
}

// Transport creates an attribute naming the streaming transport (sse, websocket).
func Transport(name string) slog.Attr {
	return slog.String("transport", name)
}

// ============================================================================
// Generic Metadata
// ============================================================================

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event creates an attribute for event names.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Version creates an attribute for version information.
func Version(v string) slog.Attr {
	return slog.String("version", v)
}

// Key creates a generic key-value attribute.
func Key(key string, value any) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.Any(key, value)
}
