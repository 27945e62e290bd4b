package window

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmylchreest/winsession/internal/host"
	"github.com/jmylchreest/winsession/internal/model"
)

// MaxModalDepth is the number of interactive children a window may have.
const MaxModalDepth = 1

// Broadcast channels shared with the UI layer.
const (
	LockChannel  = "lock-window-ui"
	ShakeChannel = "request-shake"
)

const (
	defaultSettle = 50 * time.Millisecond
	defaultGrace  = 200 * time.Millisecond
)

// LockMessage tells the UI of WindowLabel to block or allow input.
type LockMessage struct {
	WindowLabel string `json:"windowLabel"`
	Locked      bool   `json:"locked"`
}

// ShakeRequest asks WindowLabel to draw attention to its modal child.
type ShakeRequest struct {
	WindowLabel string `json:"windowLabel"`
}

type modalEntry struct {
	label string
	win   host.Window // nil until creation returns
}

// ModalLabels returns the labels on the modal stack, bottom first.
func (s *Service) ModalLabels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modalLabelsLocked()
}

// Locked reports whether a modal child is open.
func (s *Service) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.modal) > 0
}

func (s *Service) modalLabelsLocked() []string {
	labels := make([]string, 0, len(s.modal))
	for _, entry := range s.modal {
		labels = append(labels, entry.label)
	}
	return labels
}

func (s *Service) pushModalLocked(entry *modalEntry) error {
	if len(s.modal) >= MaxModalDepth {
		return fmt.Errorf("%w: %d", ErrModalDepthExceeded, MaxModalDepth)
	}
	s.modal = append(s.modal, entry)
	return nil
}

// OpenChildWindow opens a modal child of the owner. While a child is open
// no other is created: the existing one is focused and shaken and its
// label is returned.
func (s *Service) OpenChildWindow(ctx context.Context, path string, opts Options) (string, error) {
	path = cmp.Or(path, "/")
	category := cmp.Or(opts.Category, string(model.WindowTypeChild))

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return "", ErrClosing
	}
	if len(s.modal) > 0 {
		top := s.modal[len(s.modal)-1]
		s.mu.Unlock()

		s.logger.Info("modal child already open", "child", top.label)
		if w := s.entryWindow(top); w != nil {
			s.goBackground(func() { s.attend(w) })
		}
		return top.label, nil
	}

	label, err := labelFor(model.WindowTypeChild, opts.Label)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	entry := &modalEntry{label: label}
	if err := s.pushModalLocked(entry); err != nil {
		s.mu.Unlock()
		return "", err
	}
	arm := !s.reclaimArmed
	s.reclaimArmed = true
	s.mu.Unlock()

	cfg, maximized, seed := s.resolve(s.windows.Child, path, category, opts)
	cfg.Parent = s.owner.Label()

	if arm {
		s.armReclaim()
	}
	s.setUILock(true)

	done := make(chan error, 1)
	lc := host.Lifecycle{
		OnCreated: func(w host.Window) {
			s.logger.Info("child window created", "label", label, "category", category)
			s.reveal(w, maximized, true)
			s.track(w, category, model.WindowTypeChild, path, seed)
			s.spawned(w, model.WindowTypeChild)
			done <- nil
		},
		OnError: func(err error) {
			s.logger.Error("failed to create child window", "label", label, "error", err)
			s.childGone(label)
			done <- err
		},
		OnDestroyed: func() {
			s.childGone(label)
		},
	}

	w, err := s.runtime.CreateWindow(label, cfg, lc)
	if err != nil {
		s.childGone(label)
		return "", fmt.Errorf("%w: %s: %w", ErrWindowCreation, label, err)
	}

	s.mu.Lock()
	entry.win = w
	s.mu.Unlock()

	return s.await(ctx, label, done)
}

// childGone pops label off the modal stack. The last child unlocks the
// owner; otherwise the next child is focused under a short grace period.
func (s *Service) childGone(label string) {
	s.mu.Lock()
	idx := -1
	for i, entry := range s.modal {
		if entry.label == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		s.tracker.Release(label)
		return
	}
	s.modal = append(s.modal[:idx:idx], s.modal[idx+1:]...)
	closing := s.closing

	var next *modalEntry
	if len(s.modal) > 0 {
		next = s.modal[len(s.modal)-1]
		s.grace = true
		if s.graceTimer != nil {
			s.graceTimer.Stop()
		}
		s.graceTimer = time.AfterFunc(s.graceDelay(), func() {
			s.mu.Lock()
			s.grace = false
			s.mu.Unlock()
		})
	}
	s.mu.Unlock()

	s.tracker.Release(label)
	s.logger.Debug("child window gone", "label", label)
	if !closing {
		s.removeRecord(label)
	}

	if next == nil {
		s.setUILock(false)
		return
	}
	if w := s.entryWindow(next); w != nil {
		if err := w.SetFocus(); err != nil {
			s.logger.Debug("failed to focus next child", "label", next.label, "error", err)
		}
	}
}

func (s *Service) entryWindow(entry *modalEntry) host.Window {
	s.mu.Lock()
	w := entry.win
	s.mu.Unlock()
	if w != nil {
		return w
	}
	if w, ok := s.runtime.Window(entry.label); ok {
		return w
	}
	return nil
}

func (s *Service) topWindow() host.Window {
	s.mu.Lock()
	if len(s.modal) == 0 {
		s.mu.Unlock()
		return nil
	}
	top := s.modal[len(s.modal)-1]
	s.mu.Unlock()
	return s.entryWindow(top)
}

func (s *Service) setUILock(locked bool) {
	if s.bus == nil {
		return
	}
	msg := LockMessage{WindowLabel: s.owner.Label(), Locked: locked}
	if err := s.bus.Publish(s.ctx, LockChannel, msg); err != nil {
		s.logger.Warn("failed to broadcast ui lock", "locked", locked, "error", err)
	}
}

// armReclaim pulls focus back to the top child whenever the owner is
// focused while a child is open.
func (s *Service) armReclaim() {
	stop := s.owner.On(host.EventFocusChanged, s.onOwnerFocus)
	s.mu.Lock()
	s.stops = append(s.stops, stop)
	s.mu.Unlock()
}

func (s *Service) onOwnerFocus(ev host.Event) {
	if !ev.Focused {
		return
	}
	s.mu.Lock()
	skip := s.grace || len(s.modal) == 0
	s.mu.Unlock()
	if skip {
		return
	}

	s.goBackground(func() {
		if !sleep(s.ctx, s.settleDelay()) {
			return
		}
		if top := s.topWindow(); top != nil {
			s.attend(top)
		}
	})
}

func (s *Service) onShakeRequest(data []byte) {
	var req ShakeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Debug("ignoring malformed shake request", "error", err)
		return
	}
	if req.WindowLabel != s.owner.Label() {
		return
	}
	if top := s.topWindow(); top != nil {
		s.goBackground(func() { s.attend(top) })
	}
}

// attend focuses w, beeps and shakes it. Only one shake runs at a time;
// a second one would take the displaced position as its origin.
func (s *Service) attend(w host.Window) {
	s.mu.Lock()
	if s.shaking {
		s.mu.Unlock()
		return
	}
	s.shaking = true
	opts := s.shake
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.shaking = false
		s.mu.Unlock()
	}()

	if err := w.SetFocus(); err != nil {
		s.logger.Debug("failed to focus child", "label", w.Label(), "error", err)
		return
	}
	s.beeper.Beep()
	Shake(s.ctx, w, opts)
}

func (s *Service) goBackground(fn func()) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Service) settleDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cmp.Or(s.attention.Settle.Duration(), defaultSettle)
}

// graceDelay is called with s.mu held.
func (s *Service) graceDelay() time.Duration {
	return cmp.Or(s.attention.Grace.Duration(), defaultGrace)
}
