package messenger

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/winsession/internal/bus"
	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/registry"
)

func TestMessenger_MainAppliesDirectly(t *testing.T) {
	reg := registry.New(nil, nil, nil)
	b := bus.NewMemoryBus(8, nil)
	defer func() { _ = b.Close() }()

	var published int
	_, err := b.Subscribe(Channel, func([]byte) { published++ })
	require.NoError(t, err)

	m := New(true, reg, b, nil)
	ctx := context.Background()
	require.NoError(t, m.RegisterWindow(ctx, "main", model.MainCategory, model.WindowTypeMain, "/"))
	require.NoError(t, m.UpdatePreset(ctx, model.MainCategory, model.CategoryPreset{Width: 800, Height: 600}))

	assert.Contains(t, reg.GetActiveWindows(), "main")
	preset, ok := reg.GetCategoryPreset(model.MainCategory)
	require.True(t, ok)
	assert.Equal(t, 800.0, preset.Width)

	require.NoError(t, m.RemoveWindow(ctx, "main"))
	assert.Empty(t, reg.GetActiveWindows())

	require.NoError(t, b.Close())
	assert.Equal(t, 0, published)
}

func TestMessenger_NonMainPublishes(t *testing.T) {
	b := bus.NewMemoryBus(8, nil)
	defer func() { _ = b.Close() }()

	received := make(chan Envelope, 4)
	_, err := b.Subscribe(Channel, func(data []byte) {
		var env Envelope
		assert.NoError(t, json.Unmarshal(data, &env))
		received <- env
	})
	require.NoError(t, err)

	local := registry.New(nil, nil, nil)
	m := New(false, local, b, nil)
	require.NoError(t, m.RegisterWindow(context.Background(), "aux-1", "settings", model.WindowTypeAux, "/settings"))

	select {
	case env := <-received:
		assert.Equal(t, KindRegisterWindow, env.Type)
		assert.JSONEq(t, `{"label":"aux-1","category":"settings","type":"aux","url":"/settings"}`, string(env.Payload))
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}

	assert.Empty(t, local.GetActiveWindows())
}

func TestMessenger_EndToEnd(t *testing.T) {
	b := bus.NewMemoryBus(32, nil)
	defer func() { _ = b.Close() }()

	authoritative := registry.New(nil, nil, nil)
	main := New(true, authoritative, b, nil)
	stop, err := main.Listen()
	require.NoError(t, err)
	defer stop()

	aux := New(false, registry.New(nil, nil, nil), b, nil)
	ctx := context.Background()
	require.NoError(t, aux.RegisterWindow(ctx, "aux-1", "settings", model.WindowTypeAux, "/settings"))
	require.NoError(t, aux.UpdatePreset(ctx, "settings", model.CategoryPreset{X: 5, Y: 6, Width: 700, Height: 500}))
	require.NoError(t, aux.RegisterWindow(ctx, "aux-2", "logs", model.WindowTypeAux, "/logs"))
	require.NoError(t, aux.RemoveWindow(ctx, "aux-2"))

	require.Eventually(t, func() bool {
		_, ok := authoritative.GetCategoryPreset("settings")
		w := authoritative.GetActiveWindows()
		_, has1 := w["aux-1"]
		_, has2 := w["aux-2"]
		return ok && has1 && !has2
	}, time.Second, 5*time.Millisecond)
}

func TestMessenger_ListenNonMain(t *testing.T) {
	m := New(false, nil, bus.NewMemoryBus(1, nil), nil)
	_, err := m.Listen()
	assert.Error(t, err)
}

type recordingMutator struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingMutator) RegisterWindow(label, _ string, _ model.WindowType, _ string) {
	r.record("register:" + label)
}

func (r *recordingMutator) UpdateCategoryPreset(category string, _ model.CategoryPreset) {
	r.record("preset:" + category)
}

func (r *recordingMutator) RemoveWindow(label string) {
	r.record("remove:" + label)
}

func (r *recordingMutator) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func TestMessenger_DispatchDropsBadInput(t *testing.T) {
	mut := &recordingMutator{}
	m := New(true, mut, nil, nil)

	m.Dispatch([]byte(`not json`))
	m.Dispatch([]byte(`{"type":"explode-window","payload":{}}`))
	m.Dispatch([]byte(`{"type":"register-window","payload":"nope"}`))
	m.Dispatch([]byte(`{"type":"register-window","payload":{"category":"x"}}`))
	m.Dispatch([]byte(`{"type":"update-preset","payload":{"preset":{"width":1}}}`))
	m.Dispatch([]byte(`{"type":"remove-window","payload":{"label":"aux-1"}}`))

	assert.Equal(t, []string{"remove:aux-1"}, mut.calls)
}

func TestMessenger_NonMainWithoutBus(t *testing.T) {
	m := New(false, nil, nil, nil)
	assert.Error(t, m.RemoveWindow(context.Background(), "aux-1"))
}
