package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/router"
)

// testLogHandler captures log entries for testing
type testLogHandler struct {
	mu      sync.Mutex
	entries []map[string]any
}

func (h *testLogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	entry := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		entry[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	h.entries = append(h.entries, entry)
	h.mu.Unlock()
	return nil
}

func (h *testLogHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *testLogHandler) WithGroup(string) slog.Handler { return h }

func (h *testLogHandler) find(msg string) map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.entries {
		if e["msg"] == msg {
			return e
		}
	}
	return nil
}

func text(s string, status int) handler.HandlerFunc[*router.Context] {
	return func(*router.Context) handler.Response {
		return func(w http.ResponseWriter, _ *http.Request) error {
			w.WriteHeader(status)
			_, err := io.WriteString(w, s)
			return err
		}
	}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
