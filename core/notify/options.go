package notify

import (
	"fmt"
	"log/slog"
	"strings"
)

// DefaultShards is the number of registry shards used when none is configured.
const DefaultShards = 32

// OverflowPolicy decides what a bounded queue does when it is full.
type OverflowPolicy int

const (
	// DropOldest discards the oldest queued value to make room for the new one.
	DropOldest OverflowPolicy = iota
	// DropNewest discards the incoming value.
	DropNewest
)

// String returns the configuration name of the policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	default:
		return fmt.Sprintf("overflow(%d)", int(p))
	}
}

// ParseOverflowPolicy converts a configuration value into an OverflowPolicy.
// Accepted names are "drop_oldest" and "drop_newest", case-insensitive.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop_oldest", "oldest":
		return DropOldest, nil
	case "drop_newest", "newest":
		return DropNewest, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOverflowPolicy, s)
	}
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the logger used for subscription lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(b *Broker) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithQueueLimit bounds every subscription queue to n values.
// Zero or a negative value keeps queues unbounded.
func WithQueueLimit(n int) Option {
	return func(b *Broker) {
		if n < 0 {
			n = 0
		}
		b.queueLimit = n
	}
}

// WithOverflow sets the policy applied when a bounded queue is full.
// It has no effect on unbounded queues.
func WithOverflow(p OverflowPolicy) Option {
	return func(b *Broker) {
		b.overflow = p
	}
}

// WithShards sets the number of registry shards.
func WithShards(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.shards = n
		}
	}
}

// WithIDGenerator replaces the subscription ID generator (default: UUID v4).
func WithIDGenerator(fn func() string) Option {
	return func(b *Broker) {
		if fn != nil {
			b.newID = fn
		}
	}
}
