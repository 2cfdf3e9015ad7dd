package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/keyfeed/core/handler"
)

// CORSConfig defines configuration options for CORS middleware.
type CORSConfig struct {
	// Skip allows bypassing CORS handling for specific requests
	Skip func(ctx handler.Context) bool

	// AllowOrigins specifies allowed origins. Empty or "*" allows all origins.
	AllowOrigins []string

	// AllowMethods specifies allowed HTTP methods (default: GET, HEAD, POST)
	AllowMethods []string

	// AllowHeaders specifies allowed request headers
	AllowHeaders []string

	// ExposeHeaders specifies which headers are exposed to the client
	ExposeHeaders []string

	// AllowCredentials is ignored for wildcard origins
	AllowCredentials bool

	// MaxAge specifies how long preflight requests can be cached (in seconds)
	MaxAge int

	// AllowOriginFunc takes precedence over AllowOrigins when set
	AllowOriginFunc func(origin string) (string, bool)
}

// CORS returns a CORS middleware that allows any origin.
// Browser EventSource clients on other origins need this to open streams.
func CORS[C handler.Context]() handler.Middleware[C] {
	return CORSWithConfig[C](CORSConfig{})
}

// CORSWithConfig returns a CORS middleware with custom configuration.
// Preflight requests are answered directly with 204, or 403 when the origin
// or requested method is not allowed.
func CORSWithConfig[C handler.Context](cfg CORSConfig) handler.Middleware[C] {
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{http.MethodGet, http.MethodHead, http.MethodPost}
	}

	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = []string{
			"Accept",
			"Cache-Control",
			"Content-Type",
			"Last-Event-ID",
			"X-Request-ID",
		}
	}

	allowMethods := strings.Join(cfg.AllowMethods, ",")
	allowHeaders := strings.Join(cfg.AllowHeaders, ",")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ",")

	allowOrigins := make(map[string]bool, len(cfg.AllowOrigins))
	for _, origin := range cfg.AllowOrigins {
		allowOrigins[origin] = true
	}

	resolve := func(origin string) (string, bool) {
		switch {
		case cfg.AllowOriginFunc != nil:
			return cfg.AllowOriginFunc(origin)
		case len(allowOrigins) == 0 || allowOrigins["*"]:
			return "*", true
		case allowOrigins[origin]:
			return origin, true
		}
		return "", false
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			req := ctx.Request()
			allowedOrigin, allowed := resolve(req.Header.Get("Origin"))

			requestMethod := req.Header.Get("Access-Control-Request-Method")
			if req.Method == http.MethodOptions && requestMethod != "" {
				if !allowed || !slices.Contains(cfg.AllowMethods, requestMethod) {
					return func(w http.ResponseWriter, r *http.Request) error {
						w.WriteHeader(http.StatusForbidden)
						return nil
					}
				}

				requestHeaders := req.Header.Get("Access-Control-Request-Headers")
				return func(w http.ResponseWriter, r *http.Request) error {
					h := w.Header()
					h.Set("Access-Control-Allow-Origin", allowedOrigin)
					h.Set("Access-Control-Allow-Methods", allowMethods)
					if requestHeaders != "" {
						h.Set("Access-Control-Allow-Headers", allowHeaders)
					}
					if cfg.AllowCredentials && allowedOrigin != "*" {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if cfg.MaxAge > 0 {
						h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
					}
					h.Add("Vary", "Origin")
					h.Add("Vary", "Access-Control-Request-Method")
					h.Add("Vary", "Access-Control-Request-Headers")
					w.WriteHeader(http.StatusNoContent)
					return nil
				}
			}

			response := next(ctx)
			if !allowed {
				return response
			}

			return func(w http.ResponseWriter, r *http.Request) error {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowedOrigin)
				if cfg.AllowCredentials && allowedOrigin != "*" {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if exposeHeaders != "" {
					h.Set("Access-Control-Expose-Headers", exposeHeaders)
				}
				h.Add("Vary", "Origin")
				return response(w, r)
			}
		}
	}
}

// AllowOriginWildcard echoes any non-empty origin back, which unlike "*"
// permits credentials.
func AllowOriginWildcard() func(origin string) (string, bool) {
	return func(origin string) (string, bool) {
		if origin == "" {
			return "", false
		}
		return origin, true
	}
}
