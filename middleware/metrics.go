package middleware

import (
	"net/http"
	"strings"
	"time"

	gmux "github.com/gorilla/mux"

	"github.com/dmitrymomot/keyfeed/core/handler"
)

// HTTPRecorder receives one observation per finished request.
// metrics.Collector implements it.
type HTTPRecorder interface {
	ObserveHTTP(path, method string, status int, d time.Duration)
}

// Metrics records the status and duration of every request. The path label
// is the matched route template, so /events/{key} counts as one series no
// matter how many keys are streamed.
func Metrics[C handler.Context](rec HTTPRecorder) handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			start := time.Now()
			path := routeTemplate(ctx.Request())
			response := next(ctx)

			return func(w http.ResponseWriter, r *http.Request) error {
				wrapped := &responseWriter{ResponseWriter: w}
				err := response(wrapped, r)

				status := wrapped.status
				if err != nil && !wrapped.written {
					status = statusFromError(err)
				}
				if status == 0 {
					status = http.StatusOK
				}

				rec.ObserveHTTP(path, r.Method, status, time.Since(start))
				return err
			}
		}
	}
}

func routeTemplate(r *http.Request) string {
	if route := gmux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			if tpl = strings.TrimSuffix(tpl, "/"); tpl != "" {
				return tpl
			}
			return "/"
		}
	}
	return r.URL.Path
}
