package router

import (
	"net/http"

	"github.com/dmitrymomot/keyfeed/core/handler"
)

// Router registers handlers bound to the context type C.
// Path patterns use gorilla/mux syntax: "/events/{key}".
type Router[C handler.Context] interface {
	http.Handler
	Routes

	Get(pattern string, h handler.HandlerFunc[C])
	Post(pattern string, h handler.HandlerFunc[C])
	Put(pattern string, h handler.HandlerFunc[C])
	Delete(pattern string, h handler.HandlerFunc[C])
	Patch(pattern string, h handler.HandlerFunc[C])
	Head(pattern string, h handler.HandlerFunc[C])
	Options(pattern string, h handler.HandlerFunc[C])

	// Handle registers h for every method.
	Handle(pattern string, h handler.HandlerFunc[C])
	// Method registers h for the listed methods.
	Method(pattern string, h handler.HandlerFunc[C], methods ...string)

	// Use adds router-wide middleware. It runs for every matched route,
	// including routes registered before the call.
	Use(middlewares ...handler.Middleware[C])
	// With returns a router sharing the same routes whose registrations
	// get the extra middlewares.
	With(middlewares ...handler.Middleware[C]) Router[C]

	Group(fn func(r Router[C])) Router[C]
	// Route registers the routes built by fn under a path prefix.
	Route(prefix string, fn func(r Router[C])) Router[C]
}

// Routes provides route introspection.
type Routes interface {
	Routes() []Route
}

// Route describes a registered route. Method is "*" for Handle routes.
type Route struct {
	Method  string
	Pattern string
}

// New creates a router. Without WithContextFactory, C must be *Context.
func New[C handler.Context](opts ...Option[C]) Router[C] {
	return newMux[C](opts...)
}
