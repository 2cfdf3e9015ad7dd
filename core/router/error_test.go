package router_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/router"
)

type teapotError struct{}

func (teapotError) Error() string   { return "short and stout" }
func (teapotError) StatusCode() int { return http.StatusTeapot }

func TestDefaultErrorHandler(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/error", func(ctx *router.Context) handler.Response {
		return func(w http.ResponseWriter, r *http.Request) error {
			return errors.New("test error")
		}
	})
	r.Get("/status", func(ctx *router.Context) handler.Response {
		return func(w http.ResponseWriter, r *http.Request) error {
			return teapotError{}
		}
	})

	w := serve(r, http.MethodGet, "/error")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "test error")

	w = serve(r, http.MethodGet, "/status")
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestCustomErrorHandler(t *testing.T) {
	t.Parallel()

	var captured []error
	onError := func(ctx *router.Context, err error) {
		captured = append(captured, err)
		ctx.ResponseWriter().WriteHeader(http.StatusBadRequest)
	}

	r := router.New[*router.Context](router.WithErrorHandler(onError))
	r.Get("/nil", func(ctx *router.Context) handler.Response { return nil })

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/nil").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/missing").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/nil").Code)

	require.Len(t, captured, 3)
	assert.ErrorIs(t, captured[0], router.ErrNilResponse)
	assert.ErrorIs(t, captured[1], router.ErrNotFound)
	assert.ErrorIs(t, captured[2], router.ErrMethodNotAllowed)
}

func TestPanicRecovery(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("boom")
	var captured error
	r := router.New[*router.Context](router.WithErrorHandler(func(ctx *router.Context, err error) {
		captured = err
		ctx.ResponseWriter().WriteHeader(http.StatusInternalServerError)
	}))

	r.Get("/handler", func(ctx *router.Context) handler.Response { panic(sentinel) })
	r.Get("/response", func(ctx *router.Context) handler.Response {
		return func(w http.ResponseWriter, r *http.Request) error { panic("in response") }
	})

	w := serve(r, http.MethodGet, "/handler")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var perr router.PanicError
	require.ErrorAs(t, captured, &perr)
	assert.Equal(t, sentinel, perr.Value())
	assert.NotEmpty(t, perr.Stack())
	assert.ErrorIs(t, captured, sentinel)

	w = serve(r, http.MethodGet, "/response")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, captured.Error(), "in response")
}

func TestPanicAfterWriteIsNotReported(t *testing.T) {
	t.Parallel()

	called := false
	r := router.New[*router.Context](router.WithErrorHandler(func(ctx *router.Context, err error) {
		called = true
	}))
	r.Get("/late", func(ctx *router.Context) handler.Response {
		return func(w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusAccepted)
			panic("late")
		}
	})

	w := serve(r, http.MethodGet, "/late")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.False(t, called)
}

func TestErrorHandlerPreventsDoubleWrite(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/partial", func(ctx *router.Context) handler.Response {
		return func(w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("partial"))
			return errors.New("after write")
		}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partial", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}
