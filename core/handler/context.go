package handler

import (
	"context"
	"net/http"
)

// Context is the per-request context passed to handlers.
// router.Context is the default implementation.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	// Param returns a path parameter, or "" when the route has none by that name.
	Param(key string) string
	SetValue(key, val any)
}
