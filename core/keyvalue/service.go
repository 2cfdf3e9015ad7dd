// Package keyvalue ties the key store to the notification broker.
//
// Service is the single write path: Update commits the value to the store
// and then publishes it to the live subscribers of that key. Stream runs the
// consumer side of a subscription and always tears it down on return.
package keyvalue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrymomot/keyfeed/core/logger"
	"github.com/dmitrymomot/keyfeed/core/notify"
)

// StartSentinel is the first value emitted by Stream, before any update.
// Clients use it to tell a live stream from a hung connect.
const StartSentinel = "Start"

// Store is the key-value storage used by Service.
type Store interface {
	Update(key, value string)
	GetValue(key string) (string, bool)
	Keys() []string
}

// Broker is the fan-out used by Service.
type Broker interface {
	Subscribe(key string) (*notify.Subscription, error)
	Publish(key, value string) int
	Subscribers(key string) int
}

// KeyInfo describes a stored key.
type KeyInfo struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Subscribers int    `json:"subscribers"`
}

// Service combines storage and notification.
type Service struct {
	store  Store
	broker Broker
	logger *slog.Logger
	start  string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStartSentinel replaces the value Stream emits first.
func WithStartSentinel(v string) Option {
	return func(s *Service) {
		s.start = v
	}
}

// NewService creates a Service.
func NewService(store Store, broker Broker, opts ...Option) *Service {
	s := &Service{
		store:  store,
		broker: broker,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		start:  StartSentinel,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Update stores value under key and notifies the key's subscribers.
func (s *Service) Update(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.store.Update(key, value)
	delivered := s.broker.Publish(key, value)

	s.logger.DebugContext(ctx, "value updated",
		logger.Component("keyvalue"),
		logger.StreamKey(key),
		logger.Count("delivered", delivered),
	)
	return nil
}

// UpdatePayload parses a "key:value" payload and applies it.
// A malformed payload leaves the store untouched and notifies nobody.
func (s *Service) UpdatePayload(ctx context.Context, body string) (string, error) {
	key, value, err := ParsePayload(body)
	if err != nil {
		return "", err
	}
	return key, s.Update(ctx, key, value)
}

// GetValue returns the current value of key; ok is false if it was never set.
func (s *Service) GetValue(key string) (string, bool) {
	return s.store.GetValue(key)
}

// Keys lists stored keys with their values and live subscriber counts.
func (s *Service) Keys() []KeyInfo {
	keys := s.store.Keys()
	out := make([]KeyInfo, 0, len(keys))
	for _, k := range keys {
		v, ok := s.store.GetValue(k)
		if !ok {
			continue
		}
		out = append(out, KeyInfo{Key: k, Value: v, Subscribers: s.broker.Subscribers(k)})
	}
	return out
}

// Subscribe opens a raw subscription. The caller must call Unsubscribe.
func (s *Service) Subscribe(key string) (*notify.Subscription, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return s.broker.Subscribe(key)
}

// Stream subscribes to key and forwards the start sentinel followed by every
// delivered value to emit, in order, until ctx is done.
// The subscription is released on every return path. Cancellation is a
// normal end and yields nil; an emit failure is returned wrapped.
func (s *Service) Stream(ctx context.Context, key string, emit func(string) error) error {
	sub, err := s.Subscribe(key)
	if err != nil {
		return fmt.Errorf("subscribe to %q: %w", key, err)
	}
	defer sub.Unsubscribe()

	log := s.logger.With(
		logger.Component("keyvalue"),
		logger.StreamKey(key),
		logger.SubscriptionID(sub.ID()),
	)
	log.DebugContext(ctx, "stream started")

	if err := emit(s.start); err != nil {
		return fmt.Errorf("emit start sentinel: %w", err)
	}

	for {
		v, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, notify.ErrSubscriptionClosed) {
				log.DebugContext(ctx, "stream finished", logger.Elapsed(sub.CreatedAt()))
				return nil
			}
			return err
		}

		if err := emit(v); err != nil {
			log.DebugContext(ctx, "stream emit failed", logger.Error(err))
			return fmt.Errorf("emit value: %w", err)
		}
	}
}
