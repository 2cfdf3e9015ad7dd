// Package middleware provides the HTTP middleware used by the keyfeed API.
//
// Every middleware is generic over handler.Context and follows the same
// pattern: a default constructor, a WithConfig constructor taking a config
// struct, and an optional Skip predicate.
//
//	r := router.New[*router.Context]()
//	r.Use(
//		middleware.RequestID[*router.Context](),
//		middleware.LoggingWithLogger[*router.Context](log),
//		middleware.Metrics[*router.Context](collector),
//		middleware.CORS[*router.Context](),
//	)
//	r.With(middleware.BodyLimitWithSize[*router.Context](64 * middleware.KB)).
//		Post("/trigger-event", trigger)
//
// Response wrappers installed here forward http.Flusher and http.Hijacker,
// so event streams and websocket upgrades work behind them.
package middleware
