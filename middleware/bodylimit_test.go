package middleware_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/response"
	"github.com/dmitrymomot/keyfeed/core/router"
	"github.com/dmitrymomot/keyfeed/middleware"
)

func echoBody(ctx *router.Context) handler.Response {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return response.Error(response.ErrRequestEntityTooLarge)
		}
		return response.Error(err)
	}
	return response.Text(string(body))
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	newRouter := func(mw handler.Middleware[*router.Context]) router.Router[*router.Context] {
		r := router.New[*router.Context](router.WithErrorHandler(response.ErrorHandler[*router.Context]))
		r.Use(mw)
		r.Post("/trigger-event", echoBody)
		return r
	}

	t.Run("small body passes", func(t *testing.T) {
		t.Parallel()

		r := newRouter(middleware.BodyLimit[*router.Context]())
		w := serve(r, httptest.NewRequest(http.MethodPost, "/trigger-event", strings.NewReader("temp:21")))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "temp:21", w.Body.String())
	})

	t.Run("declared length over limit", func(t *testing.T) {
		t.Parallel()

		r := newRouter(middleware.BodyLimitWithSize[*router.Context](16))
		w := serve(r, httptest.NewRequest(http.MethodPost, "/trigger-event", strings.NewReader(strings.Repeat("a", 32))))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "Request body too large")
		assert.Contains(t, w.Body.String(), "32 bytes")
	})

	t.Run("unknown length capped while reading", func(t *testing.T) {
		t.Parallel()

		r := newRouter(middleware.BodyLimitWithSize[*router.Context](16))
		req := httptest.NewRequest(http.MethodPost, "/trigger-event", io.NopCloser(strings.NewReader(strings.Repeat("a", 32))))
		req.ContentLength = -1

		w := serve(r, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("custom error handler", func(t *testing.T) {
		t.Parallel()

		r := newRouter(middleware.BodyLimitWithConfig[*router.Context](middleware.BodyLimitConfig{
			MaxSize: 4,
			ErrorHandler: func(_ handler.Context, size, limit int64) handler.Response {
				return response.TextWithStatus("nope", http.StatusTeapot)
			},
		}))
		w := serve(r, httptest.NewRequest(http.MethodPost, "/trigger-event", strings.NewReader("key:value")))

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Equal(t, "nope", w.Body.String())
	})

	t.Run("skip", func(t *testing.T) {
		t.Parallel()

		r := newRouter(middleware.BodyLimitWithConfig[*router.Context](middleware.BodyLimitConfig{
			MaxSize: 4,
			Skip:    func(handler.Context) bool { return true },
		}))
		w := serve(r, httptest.NewRequest(http.MethodPost, "/trigger-event", strings.NewReader("key:value")))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		r := newRouter(middleware.BodyLimitWithSize[*router.Context](4))
		w := serve(r, httptest.NewRequest(http.MethodPost, "/trigger-event", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestBodyLimitMessageUnits(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context](router.WithErrorHandler(response.ErrorHandler[*router.Context]))
	r.Use(middleware.BodyLimitWithSize[*router.Context](middleware.KB))
	r.Post("/trigger-event", echoBody)

	body := strings.Repeat("a", int(2*middleware.MB))
	w := serve(r, httptest.NewRequest(http.MethodPost, "/trigger-event", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "2.00 MB")
	assert.Contains(t, w.Body.String(), "1.00 KB")
}
