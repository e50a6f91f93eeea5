package event

import "errors"

var (
	// ErrUnknownEventType indicates a tag that no registered event type uses.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrInvalidZone indicates a malformed zone identifier.
	ErrInvalidZone = errors.New("invalid zone")

	// ErrMalformedEvent indicates an event payload that cannot be decoded.
	ErrMalformedEvent = errors.New("malformed event")
)
