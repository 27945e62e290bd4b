package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// Message is one observed bus message.
type Message struct {
	Time    time.Time `json:"time"`
	Sender  string    `json:"sender"`
	Channel string    `json:"channel"`
	Payload string    `json:"payload"`
}

// MessageHandler is called for every observed message.
type MessageHandler func(Message)

// Monitor passively observes every winsession message on the session bus,
// whatever its channel, without claiming the bus name.
type Monitor struct {
	logger *slog.Logger

	mu      sync.Mutex
	conn    *dbus.Conn
	signals chan *dbus.Signal
	done    chan struct{}

	onMessage MessageHandler
}

// NewMonitor creates a new message monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger: logger,
	}
}

// SetMessageHandler sets the callback for observed messages.
func (m *Monitor) SetMessageHandler(handler MessageHandler) {
	m.onMessage = handler
}

// Start connects to the session bus and begins observing.
func (m *Monitor) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(DBusPath),
		dbus.WithMatchInterface(DBusInterface),
		dbus.WithMatchMember(MessageSignal),
	); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to add match rule: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.signals = make(chan *dbus.Signal, 100)
	m.done = make(chan struct{})
	m.mu.Unlock()

	conn.Signal(m.signals)
	go m.processSignals(m.signals, m.done)

	m.logger.Info("started bus monitor", "interface", DBusInterface)
	return nil
}

func (m *Monitor) processSignals(signals <-chan *dbus.Signal, done chan<- struct{}) {
	defer close(done)

	for sig := range signals {
		channel, payload, err := parseMessage(sig)
		if err != nil {
			m.logger.Debug("skipping signal", "name", sig.Name, "error", err)
			continue
		}
		if m.onMessage != nil {
			m.onMessage(Message{
				Time:    time.Now(),
				Sender:  sig.Sender,
				Channel: channel,
				Payload: payload,
			})
		}
	}
}

// Stop stops the monitor and closes its connection.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	conn, signals, done := m.conn, m.signals, m.done
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	conn.RemoveSignal(signals)
	close(signals)
	<-done
	return conn.Close()
}

var errNotMessage = errors.New("not a winsession message")

// parseMessage extracts channel and payload from a Message signal.
func parseMessage(sig *dbus.Signal) (channel, payload string, err error) {
	if sig.Name != DBusInterface+"."+MessageSignal {
		return "", "", errNotMessage
	}
	if len(sig.Body) < 2 {
		return "", "", fmt.Errorf("malformed message: %d body fields", len(sig.Body))
	}
	channel, ok := sig.Body[0].(string)
	if !ok {
		return "", "", errors.New("invalid channel type")
	}
	payload, ok = sig.Body[1].(string)
	if !ok {
		return "", "", fmt.Errorf("invalid payload type on %s", channel)
	}
	return channel, payload, nil
}
