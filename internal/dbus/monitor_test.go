package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	channel, payload, err := parseMessage(&dbus.Signal{
		Name: DBusInterface + "." + MessageSignal,
		Body: []interface{}{"request-shake", `{"windowLabel":"main"}`},
	})
	require.NoError(t, err)
	assert.Equal(t, "request-shake", channel)
	assert.Equal(t, `{"windowLabel":"main"}`, payload)

	_, _, err = parseMessage(&dbus.Signal{Name: "org.freedesktop.DBus.NameAcquired", Body: []interface{}{"x"}})
	assert.ErrorIs(t, err, errNotMessage)

	_, _, err = parseMessage(&dbus.Signal{Name: DBusInterface + "." + MessageSignal, Body: []interface{}{"only-channel"}})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errNotMessage)
}

func TestMonitor_ReportsEveryChannel(t *testing.T) {
	m := NewMonitor(nil)
	var got []Message
	m.SetMessageHandler(func(msg Message) { got = append(got, msg) })

	signals := make(chan *dbus.Signal, 4)
	done := make(chan struct{})
	go m.processSignals(signals, done)

	signals <- &dbus.Signal{Sender: ":1.42", Name: DBusInterface + "." + MessageSignal, Body: []interface{}{"window-command", `{"action":"close"}`}}
	signals <- &dbus.Signal{Name: "org.example.Other", Body: []interface{}{"a", "b"}}
	signals <- &dbus.Signal{Sender: ":1.7", Name: DBusInterface + "." + MessageSignal, Body: []interface{}{"custom", `{}`}}
	close(signals)
	<-done

	require.Len(t, got, 2)
	assert.Equal(t, "window-command", got[0].Channel)
	assert.Equal(t, ":1.42", got[0].Sender)
	assert.Equal(t, "custom", got[1].Channel)
	assert.False(t, got[1].Time.IsZero())
}

func TestMonitor_StopBeforeStart(t *testing.T) {
	assert.NoError(t, NewMonitor(nil).Stop())
}
