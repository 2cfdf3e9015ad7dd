package router

import (
	"context"
	"net/http"
	"time"
)

// Context is the default handler.Context implementation.
type Context struct {
	w      http.ResponseWriter
	r      *http.Request
	params map[string]string
}

func newContext(w http.ResponseWriter, r *http.Request, params map[string]string) *Context {
	return &Context{w: w, r: r, params: params}
}

func (c *Context) ctx() context.Context {
	if c.r == nil {
		return context.Background()
	}
	return c.r.Context()
}

// Deadline implements context.Context using the request context.
func (c *Context) Deadline() (deadline time.Time, ok bool) { return c.ctx().Deadline() }

// Done implements context.Context using the request context.
func (c *Context) Done() <-chan struct{} { return c.ctx().Done() }

// Err implements context.Context using the request context.
func (c *Context) Err() error { return c.ctx().Err() }

// Value implements context.Context using the request context.
func (c *Context) Value(key any) any { return c.ctx().Value(key) }

// Request returns the current request, including values added by SetValue.
func (c *Context) Request() *http.Request { return c.r }

// ResponseWriter returns the wrapped response writer.
func (c *Context) ResponseWriter() http.ResponseWriter { return c.w }

// Param returns a path variable by name.
func (c *Context) Param(key string) string {
	return c.params[key]
}

// SetValue stores a request-scoped value, visible through Value and the request context.
func (c *Context) SetValue(key, val any) {
	if c.r == nil {
		return
	}
	c.r = c.r.WithContext(context.WithValue(c.r.Context(), key, val))
}
