package handler

import "net/http"

// Response renders an HTTP response. It sets headers and status and writes
// the body. A returned error is passed to the router's error handler, so a
// Response that already wrote headers should only fail on transport errors.
type Response func(w http.ResponseWriter, r *http.Request) error

// HandlerFunc is a request handler bound to a context type.
type HandlerFunc[C Context] func(ctx C) Response

// ErrorHandler renders an error produced by a handler or its Response.
type ErrorHandler[C Context] func(ctx C, err error)

// Middleware wraps a handler.
type Middleware[C Context] func(next HandlerFunc[C]) HandlerFunc[C]

// Chain wraps endpoint in middlewares. The first middleware is the outermost.
func Chain[C Context](endpoint HandlerFunc[C], middlewares ...Middleware[C]) HandlerFunc[C] {
	h := endpoint
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
