// Package hosttest provides an in-memory host.Runtime for tests.
package hosttest

import (
	"fmt"
	"slices"
	"sync"

	"github.com/jmylchreest/winsession/internal/host"
)

var _ host.Runtime = (*Runtime)(nil)

// Runtime is an in-memory window runtime. Creation completes asynchronously,
// like a real toolkit, and geometry changes emit moved/resized events.
type Runtime struct {
	mu      sync.Mutex
	windows map[string]*Window
	fail    map[string]error
	created []string
}

// NewRuntime creates an empty Runtime.
func NewRuntime() *Runtime {
	return &Runtime{
		windows: make(map[string]*Window),
		fail:    make(map[string]error),
	}
}

// AddWindow registers an already-live window, such as the main window.
func (r *Runtime) AddWindow(label string, cfg host.WindowConfig) *Window {
	w := newWindow(r, label, cfg)
	r.mu.Lock()
	r.windows[label] = w
	r.mu.Unlock()
	return w
}

// FailCreate makes the next creation of label report err through OnError.
func (r *Runtime) FailCreate(label string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[label] = err
}

// CreateWindow implements host.Runtime.
func (r *Runtime) CreateWindow(label string, cfg host.WindowConfig, lc host.Lifecycle) (host.Window, error) {
	r.mu.Lock()
	if _, exists := r.windows[label]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("window %q already exists", label)
	}
	failErr, fail := r.fail[label]
	delete(r.fail, label)

	w := newWindow(r, label, cfg)
	w.onDestroyed = lc.OnDestroyed
	if !fail {
		r.windows[label] = w
		r.created = append(r.created, label)
	}
	r.mu.Unlock()

	go func() {
		if fail {
			if lc.OnError != nil {
				lc.OnError(failErr)
			}
			return
		}
		if lc.OnCreated != nil {
			lc.OnCreated(w)
		}
	}()
	return w, nil
}

// Window implements host.Runtime.
func (r *Runtime) Window(label string) (host.Window, bool) {
	w, ok := r.Get(label)
	if !ok {
		return nil, false
	}
	return w, true
}

// Get returns the concrete test window for label.
func (r *Runtime) Get(label string) (*Window, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[label]
	return w, ok
}

// Labels implements host.Runtime.
func (r *Runtime) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]string, 0, len(r.windows))
	for label := range r.windows {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}

// Created returns every label successfully created through CreateWindow, in order.
func (r *Runtime) Created() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.created)
}

func (r *Runtime) remove(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, label)
}
