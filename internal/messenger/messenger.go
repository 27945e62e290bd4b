// Package messenger routes layout mutations to the main process.
//
// In the main process a mutation is applied to the registry directly. In
// every other process it is published on the window-state-update channel,
// where the main process's listener applies it.
package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/winsession/internal/bus"
	"github.com/jmylchreest/winsession/internal/model"
)

// Channel is the bus channel carrying layout mutations.
const Channel = "window-state-update"

// Kind names a mutation.
type Kind string

const (
	KindRegisterWindow Kind = "register-window"
	KindUpdatePreset   Kind = "update-preset"
	KindRemoveWindow   Kind = "remove-window"
)

// Envelope is the wire format of a mutation.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RegisterPayload is the payload of register-window.
type RegisterPayload struct {
	Label    string           `json:"label"`
	Category string           `json:"category"`
	Type     model.WindowType `json:"type"`
	URL      string           `json:"url"`
}

// PresetPayload is the payload of update-preset.
type PresetPayload struct {
	Category string               `json:"category"`
	Preset   model.CategoryPreset `json:"preset"`
}

// RemovePayload is the payload of remove-window.
type RemovePayload struct {
	Label string `json:"label"`
}

// Mutator is the subset of the registry the messenger writes to.
type Mutator interface {
	RegisterWindow(label, category string, windowType model.WindowType, url string)
	UpdateCategoryPreset(category string, preset model.CategoryPreset)
	RemoveWindow(label string)
}

// Messenger sends layout mutations to wherever the authoritative registry lives.
type Messenger struct {
	isMain   bool
	registry Mutator
	bus      bus.Bus
	logger   *slog.Logger
}

// New creates a Messenger. registry is only written when isMain is true.
func New(isMain bool, registry Mutator, b bus.Bus, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Messenger{
		isMain:   isMain,
		registry: registry,
		bus:      b,
		logger:   logger,
	}
}

// IsMain reports whether this messenger applies mutations locally.
func (m *Messenger) IsMain() bool {
	return m.isMain
}

// RegisterWindow records a live window.
func (m *Messenger) RegisterWindow(ctx context.Context, label, category string, windowType model.WindowType, url string) error {
	return m.Send(ctx, KindRegisterWindow, RegisterPayload{Label: label, Category: category, Type: windowType, URL: url})
}

// UpdatePreset replaces the geometry preset of category.
func (m *Messenger) UpdatePreset(ctx context.Context, category string, preset model.CategoryPreset) error {
	return m.Send(ctx, KindUpdatePreset, PresetPayload{Category: category, Preset: preset})
}

// RemoveWindow deletes the record of a window.
func (m *Messenger) RemoveWindow(ctx context.Context, label string) error {
	return m.Send(ctx, KindRemoveWindow, RemovePayload{Label: label})
}

// Send applies or publishes one mutation.
func (m *Messenger) Send(ctx context.Context, kind Kind, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	env := Envelope{Type: kind, Payload: raw}

	if m.isMain {
		return m.apply(env)
	}

	m.logger.Debug("forwarding state update to main", "type", kind)
	if m.bus == nil {
		return fmt.Errorf("no bus to forward %s", kind)
	}
	if err := m.bus.Publish(ctx, Channel, env); err != nil {
		return fmt.Errorf("failed to publish %s: %w", kind, err)
	}
	return nil
}

// Listen subscribes the main process to forwarded mutations.
// The returned function stops listening.
func (m *Messenger) Listen() (func(), error) {
	if !m.isMain {
		return nil, fmt.Errorf("only the main process listens for state updates")
	}
	if m.bus == nil {
		return func() {}, nil
	}
	stop, err := m.bus.Subscribe(Channel, m.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Channel, err)
	}
	m.logger.Debug("listening for state updates", "channel", Channel)
	return stop, nil
}

// Dispatch decodes one envelope and applies it. Malformed input is logged
// and dropped.
func (m *Messenger) Dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.logger.Warn("dropping malformed state update", "error", err)
		return
	}
	if err := m.apply(env); err != nil {
		m.logger.Warn("dropping state update", "type", env.Type, "error", err)
	}
}

func (m *Messenger) apply(env Envelope) error {
	switch env.Type {
	case KindRegisterWindow:
		var p RegisterPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
		if p.Label == "" {
			return fmt.Errorf("invalid %s payload: %w", env.Type, model.ErrEmptyLabel)
		}
		m.registry.RegisterWindow(p.Label, p.Category, p.Type, p.URL)

	case KindUpdatePreset:
		var p PresetPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
		if p.Category == "" {
			return fmt.Errorf("invalid %s payload: %w", env.Type, model.ErrEmptyCategory)
		}
		m.registry.UpdateCategoryPreset(p.Category, p.Preset)

	case KindRemoveWindow:
		var p RemovePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
		m.registry.RemoveWindow(p.Label)

	default:
		return fmt.Errorf("unknown update type %q", env.Type)
	}
	return nil
}
