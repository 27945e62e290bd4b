// Package bus carries messages between window processes.
//
// A Bus delivers JSON payloads by named channel. Delivery is asynchronous
// and fire-and-forget: messages published with no subscriber are dropped,
// and only the order of a single sender is preserved.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler receives one raw payload.
type Handler func(payload []byte)

// Bus is the transport used by the messenger and the window services.
type Bus interface {
	// Publish encodes v as JSON and sends it on channel.
	Publish(ctx context.Context, channel string, v any) error

	// Subscribe registers handler for channel and returns a function that
	// removes it. Handlers for one subscription run sequentially.
	Subscribe(channel string, handler Handler) (func(), error)

	// Close stops delivery and releases the transport.
	Close() error
}

// Encode marshals v for publishing. Raw JSON passes through unchanged.
func Encode(v any) ([]byte, error) {
	switch p := v.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// Errors
var (
	ErrClosed = busError("bus is closed")
)

type busError string

func (e busError) Error() string {
	return string(e)
}
