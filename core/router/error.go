package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/keyfeed/core/handler"
)

// statusError is a sentinel that carries its HTTP status.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string   { return e.msg }
func (e *statusError) StatusCode() int { return e.status }

var (
	ErrNotFound         error = &statusError{status: http.StatusNotFound, msg: "not found"}
	ErrMethodNotAllowed error = &statusError{status: http.StatusMethodNotAllowed, msg: "method not allowed"}

	ErrNoContextFactory = errors.New("no context factory provided")
	ErrNilResponse      = errors.New("nil response")
	ErrNilHandler       = errors.New("nil handler")
	ErrInvalidMethod    = errors.New("invalid http method")
	ErrNilSubrouter     = errors.New("nil subrouter")
	ErrInvalidPattern   = errors.New("invalid route path pattern")
)

// statusCode is implemented by errors that map to an HTTP status.
type statusCode interface {
	StatusCode() int
}

func defaultErrorHandler[C handler.Context](ctx C, err error) {
	w := ctx.ResponseWriter()

	if ww, ok := w.(*responseWriter); ok && ww.Written() {
		return
	}

	status := http.StatusInternalServerError
	var sc statusCode
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	http.Error(w, err.Error(), status)
}

// PanicError is passed to the error handler when a handler panics.
type PanicError interface {
	error
	// Value returns the original panic value.
	Value() any
	// Stack returns the stack trace captured at the panic point.
	Stack() []byte
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }
func (e *panicError) Value() any    { return e.value }
func (e *panicError) Stack() []byte { return e.stack }

// Unwrap exposes a panicked error to errors.Is and errors.As.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
