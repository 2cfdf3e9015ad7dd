package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "keyfeed"

// Collector records broker and HTTP metrics on its own registry.
// It implements notify.Metrics. Safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	subscriptionsActive prometheus.Gauge
	subscriptionsTotal  prometheus.Counter
	publishedTotal      prometheus.Counter
	deliveredTotal      prometheus.Counter
	droppedTotal        prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// Option configures a Collector.
type Option func(*options)

type options struct {
	namespace string
	runtime   bool
}

// WithNamespace replaces DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithoutRuntimeMetrics skips the Go runtime and process collectors.
func WithoutRuntimeMetrics() Option {
	return func(o *options) {
		o.runtime = false
	}
}

// New creates a Collector with a fresh registry.
func New(opts ...Option) *Collector {
	o := &options{namespace: DefaultNamespace, runtime: true}
	for _, opt := range opts {
		opt(o)
	}

	reg := prometheus.NewRegistry()
	if o.runtime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		subscriptionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Subsystem: "notify",
			Name:      "subscriptions_active",
			Help:      "Number of live subscriptions.",
		}),
		subscriptionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "notify",
			Name:      "subscriptions_total",
			Help:      "Total subscriptions opened.",
		}),
		publishedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "notify",
			Name:      "published_total",
			Help:      "Total values published.",
		}),
		deliveredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "notify",
			Name:      "delivered_total",
			Help:      "Total values enqueued to subscriptions.",
		}),
		droppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Total values dropped by bounded subscription queues.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration. Streams are observed when they close.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30, 120, 600},
		}, []string{"path", "method"}),
	}
}

// SubscriptionOpened implements notify.Metrics.
func (c *Collector) SubscriptionOpened() {
	c.subscriptionsActive.Inc()
	c.subscriptionsTotal.Inc()
}

// SubscriptionClosed implements notify.Metrics.
func (c *Collector) SubscriptionClosed() {
	c.subscriptionsActive.Dec()
}

// Published implements notify.Metrics.
func (c *Collector) Published(delivered int) {
	c.publishedTotal.Inc()
	c.deliveredTotal.Add(float64(delivered))
}

// Dropped implements notify.Metrics.
func (c *Collector) Dropped() {
	c.droppedTotal.Inc()
}

// ObserveHTTP records one finished request.
func (c *Collector) ObserveHTTP(path, method string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(path, method).Observe(d.Seconds())
}

// Registry exposes the underlying registry for extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
