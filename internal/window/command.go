package window

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/jmylchreest/winsession/internal/bus"
)

// CommandChannel carries Commands addressed to a window.
const CommandChannel = "window-command"

// Action is what a Command asks its target to do.
type Action string

const (
	ActionOpenAux   Action = "open-aux"
	ActionOpenChild Action = "open-child"
	ActionClose     Action = "close"
	ActionShake     Action = "shake"
)

// ValidActions returns all valid command actions.
func ValidActions() []Action {
	return []Action{ActionOpenAux, ActionOpenChild, ActionClose, ActionShake}
}

// Command asks the window labelled Target to act.
type Command struct {
	Target   string `json:"target"`
	Action   Action `json:"action"`
	Path     string `json:"path,omitempty"`
	Category string `json:"category,omitempty"`
}

// Validate checks the command is addressed and known.
func (c Command) Validate() error {
	if c.Target == "" {
		return errors.New("command target cannot be empty")
	}
	if !slices.Contains(ValidActions(), c.Action) {
		return fmt.Errorf("unknown action %q", c.Action)
	}
	return nil
}

// SendCommand publishes cmd on the bus.
func SendCommand(ctx context.Context, b bus.Bus, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := b.Publish(ctx, CommandChannel, cmd); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", cmd.Action, cmd.Target, err)
	}
	return nil
}

// RequestShake asks label to draw attention to its modal child.
func RequestShake(ctx context.Context, b bus.Bus, label string) error {
	if err := b.Publish(ctx, ShakeChannel, ShakeRequest{WindowLabel: label}); err != nil {
		return fmt.Errorf("failed to request shake of %s: %w", label, err)
	}
	return nil
}

func (s *Service) onCommand(data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.logger.Debug("ignoring malformed window command", "error", err)
		return
	}
	if cmd.Target != s.owner.Label() {
		return
	}
	if err := cmd.Validate(); err != nil {
		s.logger.Warn("ignoring invalid window command", "error", err)
		return
	}

	s.logger.Info("window command received", "action", cmd.Action, "path", cmd.Path, "category", cmd.Category)

	switch cmd.Action {
	case ActionOpenAux:
		s.goBackground(func() {
			if _, err := s.OpenAuxiliaryWindow(s.ctx, cmd.Path, Options{Category: cmd.Category}); err != nil {
				s.logger.Warn("open-aux command failed", "error", err)
			}
		})
	case ActionOpenChild:
		s.goBackground(func() {
			if _, err := s.OpenChildWindow(s.ctx, cmd.Path, Options{Category: cmd.Category}); err != nil {
				s.logger.Warn("open-child command failed", "error", err)
			}
		})
	case ActionClose:
		s.RequestClose()
	case ActionShake:
		target := s.topWindow()
		if target == nil {
			target = s.owner
		}
		s.goBackground(func() { s.attend(target) })
	}
}
