package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable is returned when the microphone is denied, missing or busy.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrTransport signals that a connection attempt failed or a live socket errored.
	ErrTransport = errors.New("voice transport error")

	// ErrConnectionExhausted is reported once after the last reconnect attempt fails.
	ErrConnectionExhausted = errors.New("failed to reconnect to voice service after multiple attempts")

	// ErrMalformedMessage marks an inbound payload that is not valid JSON or has no type.
	ErrMalformedMessage = errors.New("malformed inbound message")

	// ErrSendWhileClosed is logged (never returned) when sending on a closed transport.
	ErrSendWhileClosed = errors.New("send while transport not open")

	ErrNotConnected   = errors.New("not connected to voice service")
	ErrNotInitialized = errors.New("audio capture not initialized")

	// ErrInvalidLine rejects order lines with an empty id or non-positive quantity.
	ErrInvalidLine = errors.New("invalid order line")
	ErrEmptyOrder  = errors.New("order has no items")
)

// RemoteError carries an error reported by the voice service in an inbound error message.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("voice service error: %s", e.Message)
}
