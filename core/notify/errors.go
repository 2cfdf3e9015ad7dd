package notify

import "errors"

var (
	// ErrBrokerClosed is returned by Subscribe after Close was called.
	ErrBrokerClosed = errors.New("broker is closed")

	// ErrSubscriptionClosed is returned by Next once the subscription is torn down.
	ErrSubscriptionClosed = errors.New("subscription is closed")

	// ErrEmptyKey is returned when subscribing to an empty key.
	ErrEmptyKey = errors.New("key must not be empty")

	// ErrInvalidOverflowPolicy is returned when parsing an unknown overflow policy name.
	ErrInvalidOverflowPolicy = errors.New("invalid overflow policy")
)
