package notify

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dmitrymomot/keyfeed/core/logger"
)

// Broker fans published values out to the live subscriptions of each key.
// Safe for concurrent use.
type Broker struct {
	reg     *registry
	logger  *slog.Logger
	metrics Metrics
	newID   func() string

	shards     int
	queueLimit int
	overflow   OverflowPolicy

	closed    atomic.Bool
	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// Stats is a point-in-time view of broker activity.
type Stats struct {
	Keys          int    `json:"keys"`
	Subscriptions int    `json:"subscriptions"`
	Published     uint64 `json:"published"`
	Delivered     uint64 `json:"delivered"`
	Dropped       uint64 `json:"dropped"`
}

// NewBroker creates a broker. Queues are unbounded unless WithQueueLimit is given.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: nopMetrics{},
		newID:   func() string { return uuid.New().String() },
		shards:  DefaultShards,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.reg = newRegistry(b.shards)
	return b
}

// Subscribe registers a new subscription for key.
func (b *Broker) Subscribe(key string) (*Subscription, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if b.closed.Load() {
		return nil, ErrBrokerClosed
	}

	s := newSubscription(b, key)
	b.metrics.SubscriptionOpened()
	b.reg.add(s)

	// Close may have drained the registry between the check above and add.
	if b.closed.Load() {
		s.Unsubscribe()
		return nil, ErrBrokerClosed
	}

	b.logger.Debug("subscription opened",
		logger.Component("notify"),
		logger.SubscriptionID(s.id),
		logger.StreamKey(key),
	)
	return s, nil
}

// Publish hands value to every live subscription of key and returns how many
// of them queued it. It never waits for consumers.
func (b *Broker) Publish(key, value string) int {
	delivered := 0
	for _, s := range b.reg.snapshot(key) {
		accepted, dropped := s.enqueue(value)
		if accepted {
			delivered++
		}
		if dropped {
			b.dropped.Add(1)
			b.metrics.Dropped()
		}
	}

	b.published.Add(1)
	b.delivered.Add(uint64(delivered))
	b.metrics.Published(delivered)
	return delivered
}

// Subscribers returns the number of live subscriptions for key.
func (b *Broker) Subscribers(key string) int {
	return b.reg.count(key)
}

// Stats returns current counters.
func (b *Broker) Stats() Stats {
	keys, subs := b.reg.totals()
	return Stats{
		Keys:          keys,
		Subscriptions: subs,
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Dropped:       b.dropped.Load(),
	}
}

// Healthcheck reports ErrBrokerClosed once Close has been called.
func (b *Broker) Healthcheck(context.Context) error {
	if b.closed.Load() {
		return ErrBrokerClosed
	}
	return nil
}

// Close tears down every live subscription and rejects new ones.
// Publish keeps working and simply finds no subscribers. Idempotent.
func (b *Broker) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	subs := b.reg.all()
	for _, s := range subs {
		s.Unsubscribe()
	}

	b.logger.Info("broker closed",
		logger.Component("notify"),
		logger.Count("subscriptions", len(subs)),
	)
	return nil
}

// detach removes s from the registry; called once per subscription from Unsubscribe.
func (b *Broker) detach(s *Subscription) {
	if !b.reg.remove(s) {
		return
	}

	b.metrics.SubscriptionClosed()
	b.logger.Debug("subscription closed",
		logger.Component("notify"),
		logger.SubscriptionID(s.id),
		logger.StreamKey(s.key),
		logger.Elapsed(s.createdAt),
	)
}
