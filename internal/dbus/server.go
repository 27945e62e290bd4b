// Package dbus carries winsession bus messages over the D-Bus session bus.
//
// Every message is a Message(channel, payload) signal emitted on a fixed
// object path. Each Bus listens for those signals and hands them to its
// local subscribers, so every process on the session sees every message.
package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/winsession/internal/bus"
)

const (
	// DBusInterface is the winsession interface name.
	DBusInterface = "io.github.jmylchreest.winsession.Bus"
	// DBusPath is the object path messages are emitted on.
	DBusPath = "/io/github/jmylchreest/winsession"
	// DBusBusName is the well-known name claimed by the main process.
	DBusBusName = "io.github.jmylchreest.winsession"
	// MessageSignal is the signal member carrying bus messages.
	MessageSignal = "Message"
)

var _ bus.Bus = (*Bus)(nil)

// Bus implements bus.Bus on a private session bus connection.
type Bus struct {
	*bus.Dispatcher

	conn   *dbus.Conn
	logger *slog.Logger

	mu      sync.Mutex
	signals chan *dbus.Signal
	owner   bool
	closed  bool
	done    chan struct{}
}

// Connect opens a session bus connection and starts listening for messages.
func Connect(queueSize int, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	b, err := newBus(conn, queueSize, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return b, nil
}

func newBus(conn *dbus.Conn, queueSize int, logger *slog.Logger) (*Bus, error) {
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(DBusPath),
		dbus.WithMatchInterface(DBusInterface),
		dbus.WithMatchMember(MessageSignal),
	); err != nil {
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	b := &Bus{
		Dispatcher: bus.NewDispatcher(queueSize, logger),
		conn:       conn,
		logger:     logger,
		signals:    make(chan *dbus.Signal, queueSize),
		done:       make(chan struct{}),
	}
	conn.Signal(b.signals)
	go b.processSignals()
	return b, nil
}

// Claim exports the introspection data and requests the well-known name.
// Only the main process claims it; the CLI uses it to detect a running session.
func (b *Bus) Claim() error {
	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Signals: busSignals(),
			},
		},
	}
	if err := b.conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := b.conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken: another session is running", DBusBusName)
	}

	b.mu.Lock()
	b.owner = true
	b.mu.Unlock()

	b.logger.Info("claimed session bus name", "name", DBusBusName, "path", DBusPath)
	return nil
}

// Publish emits a Message signal carrying v as JSON.
func (b *Bus) Publish(ctx context.Context, channel string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return bus.ErrClosed
	}

	data, err := bus.Encode(v)
	if err != nil {
		return err
	}

	if err := b.conn.Emit(DBusPath, DBusInterface+"."+MessageSignal, channel, string(data)); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", MessageSignal, err)
	}
	b.logger.Debug("emitted bus message", "channel", channel, "bytes", len(data))
	return nil
}

// processSignals routes received Message signals to subscribers.
func (b *Bus) processSignals() {
	defer close(b.done)

	for sig := range b.signals {
		channel, payload, err := parseMessage(sig)
		if errors.Is(err, errNotMessage) {
			continue
		}
		if err != nil {
			b.logger.Warn("malformed bus message", "error", err)
			continue
		}
		b.Deliver(channel, []byte(payload))
	}
}

// Close releases the name, stops delivery and closes the connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	owner := b.owner
	b.mu.Unlock()

	if owner {
		if _, err := b.conn.ReleaseName(DBusBusName); err != nil {
			b.logger.Warn("failed to release bus name", "error", err)
		}
	}

	b.conn.RemoveSignal(b.signals)
	close(b.signals)
	<-b.done

	_ = b.Dispatcher.Close()
	return b.conn.Close()
}

// SessionRunning reports whether a main process currently owns the bus name.
func SessionRunning() (bool, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return false, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var hasOwner bool
	if err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, DBusBusName).Store(&hasOwner); err != nil {
		return false, fmt.Errorf("failed to query bus name: %w", err)
	}
	return hasOwner, nil
}

func busSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: MessageSignal,
			Args: []introspect.Arg{
				{Name: "channel", Type: "s"},
				{Name: "payload", Type: "s"},
			},
		},
	}
}
