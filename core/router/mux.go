package router

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"

	gmux "github.com/gorilla/mux"

	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/logger"
)

var supportedMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

// mux adapts a gorilla/mux router to typed handlers.
type mux[C handler.Context] struct {
	router       *gmux.Router
	middlewares  []handler.Middleware[C]
	errorHandler handler.ErrorHandler[C]
	newContext   func(http.ResponseWriter, *http.Request, map[string]string) C
	logger       *slog.Logger
	parent       *mux[C] // set for With, Group and Route routers
}

func newMux[C handler.Context](opts ...Option[C]) *mux[C] {
	m := &mux[C]{
		router:       gmux.NewRouter(),
		errorHandler: defaultErrorHandler[C],
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.newContext == nil {
		m.newContext = func(w http.ResponseWriter, r *http.Request, params map[string]string) C {
			var zero C
			if _, ok := any(zero).(*Context); ok {
				return any(newContext(w, r, params)).(C)
			}
			panic(ErrNoContextFactory)
		}
	}

	m.router.NotFoundHandler = m.errorEndpoint(ErrNotFound)
	m.router.MethodNotAllowedHandler = m.errorEndpoint(ErrMethodNotAllowed)

	return m
}

func (m *mux[C]) root() *mux[C] {
	r := m
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// ServeHTTP implements http.Handler.
func (m *mux[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !slices.Contains(supportedMethods, r.Method) {
		m.errorEndpoint(ErrMethodNotAllowed).ServeHTTP(w, r)
		return
	}
	m.root().router.ServeHTTP(w, r)
}

func (m *mux[C]) errorEndpoint(err error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := newResponseWriter(w)
		root := m.root()
		root.errorHandler(root.newContext(ww, r, nil), err)
	})
}

// endpoint turns a typed handler into an http.Handler. Router-wide middleware
// is resolved per request so Use can follow route registration.
func (m *mux[C]) endpoint(fn handler.HandlerFunc[C]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		root := m.root()
		ww := newResponseWriter(w)
		ctx := root.newContext(ww, r, gmux.Vars(r))

		defer func() {
			if p := recover(); p != nil {
				perr := &panicError{value: p, stack: debug.Stack()}
				if ww.Written() {
					root.logger.Error("panic after response written",
						slog.Any("value", perr.value),
						slog.String("stack", string(perr.stack)),
						logger.Method(r.Method),
						logger.Path(r.URL.Path),
						logger.StatusCode(ww.Status()),
					)
					return
				}
				root.errorHandler(ctx, perr)
			}
		}()

		h := fn
		if len(root.middlewares) > 0 {
			h = handler.Chain(h, root.middlewares...)
		}

		response := h(ctx)
		if response == nil {
			root.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := response(ww, r); err != nil {
			root.errorHandler(ctx, err)
		}
	})
}

// scoped wraps fn with the middlewares of m and its non-root ancestors.
func (m *mux[C]) scoped(fn handler.HandlerFunc[C]) handler.HandlerFunc[C] {
	var mws []handler.Middleware[C]
	for cur := m; cur.parent != nil; cur = cur.parent {
		mws = append(slices.Clone(cur.middlewares), mws...)
	}
	if len(mws) == 0 {
		return fn
	}
	return handler.Chain(fn, mws...)
}

func (m *mux[C]) handle(pattern string, fn handler.HandlerFunc[C], methods ...string) {
	if pattern == "" || pattern[0] != '/' {
		panic(fmt.Errorf("%w: '%s'", ErrInvalidPattern, pattern))
	}
	if fn == nil {
		panic(fmt.Errorf("%w on '%s'", ErrNilHandler, pattern))
	}

	route := m.router.Handle(pattern, m.endpoint(m.scoped(fn)))
	if len(methods) > 0 {
		route.Methods(methods...)
	}
	if err := route.GetError(); err != nil {
		panic(fmt.Errorf("%w: '%s': %w", ErrInvalidPattern, pattern, err))
	}
}

// Get registers a handler for GET requests.
func (m *mux[C]) Get(pattern string, h handler.HandlerFunc[C]) {
	m.handle(pattern, h, http.MethodGet)
}

// Post registers a handler for POST requests.
func (m *mux[C]) Post(pattern string, h handler.HandlerFunc[C]) {
	m.handle(pattern, h, http.MethodPost)
}

// Put registers a handler for PUT requests.
func (m *mux[C]) Put(pattern string, h handler.HandlerFunc[C]) {
	m.handle(pattern, h, http.MethodPut)
}

// Delete registers a handler for DELETE requests.
func (m *mux[C]) Delete(pattern string, h handler.HandlerFunc[C]) {
	m.handle(pattern, h, http.MethodDelete)
}

// Patch registers a handler for PATCH requests.
func (m *mux[C]) Patch(pattern string, h handler.HandlerFunc[C]) {
	m.handle(pattern, h, http.MethodPatch)
}

// Head registers a handler for HEAD requests.
func (m *mux[C]) Head(pattern string, h handler.HandlerFunc[C]) {
	m.handle(pattern, h, http.MethodHead)
}

// Options registers a handler for OPTIONS requests.
func (m *mux[C]) Options(pattern string, h handler.HandlerFunc[C]) {
	m.handle(pattern, h, http.MethodOptions)
}

// Handle registers a handler for all HTTP methods.
func (m *mux[C]) Handle(pattern string, h handler.HandlerFunc[C]) {
	m.handle(pattern, h)
}

// Method registers a handler for one or more HTTP methods.
func (m *mux[C]) Method(pattern string, h handler.HandlerFunc[C], methods ...string) {
	if len(methods) == 0 {
		panic(fmt.Errorf("%w: no methods provided", ErrInvalidMethod))
	}

	normalized := make([]string, 0, len(methods))
	for _, method := range methods {
		method = strings.ToUpper(method)
		if !slices.Contains(supportedMethods, method) {
			panic(fmt.Errorf("%w: %s", ErrInvalidMethod, method))
		}
		if !slices.Contains(normalized, method) {
			normalized = append(normalized, method)
		}
	}
	m.handle(pattern, h, normalized...)
}

// Use appends middleware. On the root router it applies to every route.
func (m *mux[C]) Use(middlewares ...handler.Middleware[C]) {
	m.middlewares = append(m.middlewares, middlewares...)
}

// With returns an inline router whose routes get the extra middlewares.
func (m *mux[C]) With(middlewares ...handler.Middleware[C]) Router[C] {
	return &mux[C]{
		router:      m.router,
		middlewares: slices.Clone(middlewares),
		parent:      m,
	}
}

// Group runs fn against an inline router.
func (m *mux[C]) Group(fn func(r Router[C])) Router[C] {
	im := m.With()
	if fn != nil {
		fn(im)
	}
	return im
}

// Route registers the routes built by fn under prefix.
func (m *mux[C]) Route(prefix string, fn func(r Router[C])) Router[C] {
	if fn == nil {
		panic(fmt.Errorf("%w on '%s'", ErrNilSubrouter, prefix))
	}
	if prefix == "" || prefix[0] != '/' {
		panic(fmt.Errorf("%w: '%s'", ErrInvalidPattern, prefix))
	}

	sub := &mux[C]{router: m.router, parent: m}
	if p := strings.TrimSuffix(prefix, "/"); p != "" {
		sub.router = m.router.PathPrefix(p).Subrouter()
	}
	fn(sub)
	return sub
}

// Routes lists registered routes in registration order.
func (m *mux[C]) Routes() []Route {
	var routes []Route
	_ = m.root().router.Walk(func(route *gmux.Route, _ *gmux.Router, _ []*gmux.Route) error {
		if route.GetHandler() == nil {
			return nil
		}
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil || len(methods) == 0 {
			routes = append(routes, Route{Method: "*", Pattern: tpl})
			return nil
		}
		for _, method := range methods {
			routes = append(routes, Route{Method: method, Pattern: tpl})
		}
		return nil
	})
	return routes
}
