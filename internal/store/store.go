// Package store persists the window layout.
//
// Saves are debounced: every Save replaces the pending snapshot and restarts
// a quiet-period timer, and only the latest snapshot is written when it fires.
// Flush writes the pending snapshot immediately and is called on shutdown.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/winsession/internal/model"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = time.Second

// LayoutStore is the single writer of the layout file.
type LayoutStore struct {
	persistence Persistence
	debounce    time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *model.AppState
	closed  bool
	onFlush func(error)

	// writeMu orders physical writes so an older snapshot never lands after a newer one.
	writeMu sync.Mutex
}

// NewLayoutStore creates a LayoutStore over persistence.
func NewLayoutStore(persistence Persistence, debounce time.Duration, logger *slog.Logger) *LayoutStore {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &LayoutStore{
		persistence: persistence,
		debounce:    debounce,
		logger:      logger,
	}
}

// Path returns the layout file path.
func (s *LayoutStore) Path() string {
	return s.persistence.Path()
}

// SetFlushCallback registers a function called after each physical write
// with its result.
func (s *LayoutStore) SetFlushCallback(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFlush = fn
}

// Load reads the layout. It never fails: a missing, unreadable or
// malformed file yields an empty state.
func (s *LayoutStore) Load() *model.AppState {
	return loadOrEmpty(s.persistence, s.logger)
}

// Save schedules state to be written after the quiet period.
// The state is copied, so callers may keep mutating their own value.
func (s *LayoutStore) Save(state *model.AppState) {
	snapshot := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Debug("save ignored", "error", ErrStoreClosed)
		return
	}

	s.pending = snapshot
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.onTimer)
		return
	}
	s.timer.Reset(s.debounce)
}

// Pending reports whether a snapshot is waiting to be written.
func (s *LayoutStore) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Flush cancels the timer and writes any pending snapshot now.
// It returns ErrStoreClosed once the store is closed.
func (s *LayoutStore) Flush() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	return s.write()
}

// Close flushes and rejects further saves. Closing twice is a no-op.
func (s *LayoutStore) Close() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil
	}

	err := s.Flush()

	s.mu.Lock()
	s.closed = true
	s.timer = nil
	s.mu.Unlock()

	return err
}

func (s *LayoutStore) onTimer() {
	if err := s.write(); err != nil {
		s.logger.Warn("failed to save layout, will retry on next change", "path", s.Path(), "error", err)
	}
}

func (s *LayoutStore) write() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	snapshot := s.pending
	s.pending = nil
	s.mu.Unlock()

	if snapshot == nil {
		return nil
	}

	err := s.persistence.Write(snapshot)

	s.mu.Lock()
	if err != nil && s.pending == nil {
		s.pending = snapshot
	}
	onFlush := s.onFlush
	s.mu.Unlock()

	if err == nil {
		s.logger.Debug("layout saved", "path", s.Path(), "workspaces", len(snapshot.Workspaces))
	}
	if onFlush != nil {
		onFlush(err)
	}
	return err
}
