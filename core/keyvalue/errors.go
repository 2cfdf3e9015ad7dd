package keyvalue

import "errors"

var (
	// ErrEmptyPayload is returned for an empty or whitespace-only write payload.
	ErrEmptyPayload = errors.New("event data is empty")

	// ErrMalformedPayload is returned when a write payload is not exactly "key:value".
	ErrMalformedPayload = errors.New("invalid event data format, expected 'key:value'")

	// ErrEmptyKey is returned when the key part of a write is empty.
	ErrEmptyKey = errors.New("key must not be empty")
)
