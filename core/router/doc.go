// Package router binds typed handlers to a gorilla/mux router.
//
// Handlers receive a context type C implementing handler.Context and return a
// handler.Response. The router builds the context, runs middleware, renders the
// response and routes every failure through one error handler: unmatched
// paths (ErrNotFound), method mismatches (ErrMethodNotAllowed), nil responses,
// render errors and recovered panics (PanicError).
//
//	r := router.New[*router.Context](
//		router.WithErrorHandler(response.ErrorHandler[*router.Context]),
//	)
//	r.Use(middleware.RequestID[*router.Context]())
//	r.Get("/values/{key}", func(ctx *router.Context) handler.Response {
//		return response.Text(ctx.Param("key"))
//	})
//
// Router-wide middleware added with Use runs for every matched route. With,
// Group and Route return routers sharing the same route table whose
// registrations get extra middleware.
//
// The writer handed to handlers implements http.Flusher and http.Hijacker,
// so server-sent events and websocket upgrades work through it.
package router
