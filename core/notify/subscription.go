package notify

import (
	"context"
	"sync"
	"time"
)

// Subscription is one consumer's registration for values of a single key.
// Next must be called from one goroutine at a time; Unsubscribe may be
// called from any goroutine, any number of times.
type Subscription struct {
	id        string
	key       string
	createdAt time.Time
	broker    *Broker

	limit    int
	overflow OverflowPolicy

	mu      sync.Mutex
	queue   []string
	closed  bool
	dropped uint64

	// signal holds at most one pending wake-up for Next.
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newSubscription(b *Broker, key string) *Subscription {
	return &Subscription{
		id:        b.newID(),
		key:       key,
		createdAt: time.Now(),
		broker:    b,
		limit:     b.queueLimit,
		overflow:  b.overflow,
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Key returns the key the subscription filters on.
func (s *Subscription) Key() string { return s.key }

// CreatedAt returns the time the subscription was registered.
func (s *Subscription) CreatedAt() time.Time { return s.createdAt }

// Done returns a channel that is closed when the subscription is torn down.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Len returns the number of values waiting in the queue.
func (s *Subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Dropped returns how many values the overflow policy discarded.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Closed reports whether Unsubscribe has run.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Next returns the oldest queued value, waiting until one arrives.
// It returns ctx.Err() as soon as ctx is done and ErrSubscriptionClosed once
// the subscription has been torn down.
func (s *Subscription) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return "", ErrSubscriptionClosed
		}
		if len(s.queue) > 0 {
			v := s.queue[0]
			s.queue[0] = ""
			s.queue = s.queue[1:]
			if len(s.queue) == 0 {
				s.queue = nil
			}
			s.mu.Unlock()
			return v, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-s.done:
		case <-s.signal:
		}
	}
}

// Unsubscribe tears the subscription down. Safe to call repeatedly.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.detach(s)

		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()

		close(s.done)
	})
}

// enqueue appends v to the queue. accepted is false when v was not queued
// (subscription closed or DropNewest overflow); dropped is true when the
// overflow policy discarded a value.
func (s *Subscription) enqueue(v string) (accepted, dropped bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, false
	}

	if s.limit > 0 && len(s.queue) >= s.limit {
		s.dropped++
		if s.overflow == DropNewest {
			s.mu.Unlock()
			return false, true
		}
		s.queue[0] = ""
		s.queue = s.queue[1:]
		dropped = true
	}
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
	return true, dropped
}
