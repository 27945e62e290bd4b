package bus

import (
	"log/slog"
	"sync"
)

// DefaultQueueSize is the per-subscriber buffer used when none is given.
const DefaultQueueSize = 64

// Dispatcher fans payloads out to channel subscribers. Each subscriber
// has its own buffered queue drained by one goroutine, so a slow handler
// never blocks the publisher or other subscribers. A full queue drops the
// payload.
type Dispatcher struct {
	mu        sync.RWMutex
	subs      map[string][]*subscription
	queueSize int
	closed    bool
	logger    *slog.Logger
}

type subscription struct {
	queue chan []byte
	done  chan struct{}
}

// NewDispatcher creates a Dispatcher with the given queue size.
func NewDispatcher(queueSize int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		subs:      make(map[string][]*subscription),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Subscribe registers handler for channel.
func (d *Dispatcher) Subscribe(channel string, handler Handler) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}

	sub := &subscription{
		queue: make(chan []byte, d.queueSize),
		done:  make(chan struct{}),
	}
	d.subs[channel] = append(d.subs[channel], sub)

	go func() {
		defer close(sub.done)
		for payload := range sub.queue {
			handler(payload)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { d.unsubscribe(channel, sub) })
	}, nil
}

func (d *Dispatcher) unsubscribe(channel string, sub *subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subs[channel]
	for i, s := range subs {
		if s == sub {
			d.subs[channel] = append(subs[:i:i], subs[i+1:]...)
			close(sub.queue)
			break
		}
	}
	if len(d.subs[channel]) == 0 {
		delete(d.subs, channel)
	}
}

// Deliver queues payload for every subscriber of channel and returns how
// many accepted it.
func (d *Dispatcher) Deliver(channel string, payload []byte) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return 0
	}

	delivered := 0
	for _, sub := range d.subs[channel] {
		select {
		case sub.queue <- payload:
			delivered++
		default:
			d.logger.Warn("subscriber queue full, dropping message", "channel", channel)
		}
	}
	if len(d.subs[channel]) == 0 {
		d.logger.Debug("no subscribers, dropping message", "channel", channel)
	}
	return delivered
}

// Subscribers returns the number of subscribers on channel.
func (d *Dispatcher) Subscribers(channel string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[channel])
}

// Close stops every subscription and waits for queued payloads to drain.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	var all []*subscription
	for _, subs := range d.subs {
		all = append(all, subs...)
		for _, sub := range subs {
			close(sub.queue)
		}
	}
	d.subs = make(map[string][]*subscription)
	d.mu.Unlock()

	for _, sub := range all {
		<-sub.done
	}
	return nil
}
