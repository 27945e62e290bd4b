package bus

import (
	"context"
	"log/slog"
)

var _ Bus = (*MemoryBus)(nil)

// MemoryBus is an in-process Bus. It connects window services hosted in a
// single process and backs the tests.
type MemoryBus struct {
	*Dispatcher
}

// NewMemoryBus creates a MemoryBus with the given per-subscriber queue size.
func NewMemoryBus(queueSize int, logger *slog.Logger) *MemoryBus {
	return &MemoryBus{Dispatcher: NewDispatcher(queueSize, logger)}
}

// Publish encodes v and delivers it to the channel's subscribers.
func (b *MemoryBus) Publish(ctx context.Context, channel string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(v)
	if err != nil {
		return err
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	b.Deliver(channel, data)
	return nil
}
