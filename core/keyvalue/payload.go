package keyvalue

import (
	"fmt"
	"strings"
)

// PayloadSeparator splits key and value in a write payload.
const PayloadSeparator = ":"

// ParsePayload splits a "key:value" write payload.
// Exactly one separator is required and the key must not be empty; the value
// may be. A trailing line break is ignored.
func ParsePayload(body string) (key, value string, err error) {
	body = strings.TrimRight(body, "\r\n")
	if strings.TrimSpace(body) == "" {
		return "", "", ErrEmptyPayload
	}

	parts := strings.Split(body, PayloadSeparator)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: received %q", ErrMalformedPayload, body)
	}
	if parts[0] == "" {
		return "", "", fmt.Errorf("%w: received %q", ErrEmptyKey, body)
	}

	return parts[0], parts[1], nil
}
