package display

import (
	"slices"
	"sync"

	"github.com/jmylchreest/winsession/internal/host"
)

// eventQueueSize bounds the events buffered for one window.
const eventQueueSize = 64

// dispatcher delivers window events to handlers, in order, on its own goroutine.
type dispatcher struct {
	mu       sync.Mutex
	handlers map[string]map[int]func(host.Event)
	nextID   int
	queue    chan func()
	closed   bool
	done     chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		handlers: make(map[string]map[int]func(host.Event)),
		queue:    make(chan func(), eventQueueSize),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		for fn := range d.queue {
			fn()
		}
	}()
	return d
}

func (d *dispatcher) on(event string, handler func(host.Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	if d.handlers[event] == nil {
		d.handlers[event] = make(map[int]func(host.Event))
	}
	d.handlers[event][id] = handler

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers[event], id)
	}
}

// emit queues ev for the handlers subscribed when it is delivered.
// Returns false if the event was dropped.
func (d *dispatcher) emit(ev host.Event) bool {
	return d.run(func() {
		d.mu.Lock()
		ids := make([]int, 0, len(d.handlers[ev.Name]))
		for id := range d.handlers[ev.Name] {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		hs := make([]func(host.Event), 0, len(ids))
		for _, id := range ids {
			hs = append(hs, d.handlers[ev.Name][id])
		}
		d.mu.Unlock()

		for _, h := range hs {
			h(ev)
		}
	})
}

// run queues fn behind any pending events.
func (d *dispatcher) run(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- fn:
		return true
	default:
		return false
	}
}

// close delivers what is queued and stops the dispatcher.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.handlers = make(map[string]map[int]func(host.Event))
	close(d.queue)
	d.mu.Unlock()
}

func (d *dispatcher) wait() {
	<-d.done
}
