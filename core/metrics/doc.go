// Package metrics exports broker and HTTP metrics to Prometheus.
//
//	m := metrics.New()
//	broker := notify.NewBroker(notify.WithMetrics(m))
//	r.Get("/metrics", func(*router.Context) handler.Response {
//		return response.Handler(m.Handler())
//	})
package metrics
