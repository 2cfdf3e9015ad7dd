// Package health provides liveness and readiness probe handlers.
//
//	r.Get("/health/live", health.Liveness[*router.Context])
//	r.Get("/health/ready", health.Readiness[*router.Context](log, broker.Healthcheck))
//
// Checks have the signature func(context.Context) error and run concurrently.
package health
