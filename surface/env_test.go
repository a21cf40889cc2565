package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/handle"
	"github.com/wippyai/ffi-bridge/signal"
)

type eventLog struct {
	events []handle.Event
}

func (l *eventLog) OnHandleEvent(e handle.Event) { l.events = append(l.events, e) }

func TestEnv_ObjectEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	events := &eventLog{}
	mem := buffer.NewLinear(0, 64)
	env := NewEnv(mem, Options{Logger: zap.New(core), Observer: events})
	h := &harness{t: t, mem: mem, env: env}

	counter := h.newObject("counter")
	h.newObject("person")
	_, code := h.call("counter_destroy", counter)
	require.Equal(t, signal.Ok, code)

	// A stale destroy emits nothing.
	h.call("counter_destroy", counter)
	require.Len(t, events.events, 3)
	assert.Equal(t, handle.EventCreated, events.events[0].Type)
	assert.Equal(t, CounterType, events.events[0].TypeID)
	assert.Equal(t, handle.EventDropped, events.events[2].Type)
	assert.Equal(t, uint32(counter), uint32(events.events[2].Handle))

	created := logs.FilterMessage("object created").All()
	require.Len(t, created, 2)
	assert.Equal(t, "counter", created[0].ContextMap()["type"])
	assert.Equal(t, "person", created[1].ContextMap()["type"])
	destroyed := logs.FilterMessage("object destroyed").All()
	require.Len(t, destroyed, 1)
	assert.Equal(t, uint32(counter), destroyed[0].ContextMap()["handle"])

	// Close drops the person and then detaches the observers.
	require.NoError(t, env.Close())
	require.Len(t, events.events, 4)
	assert.Equal(t, PersonType, events.events[3].TypeID)
	assert.Equal(t, 2, logs.FilterMessage("object destroyed").Len())

	require.NoError(t, env.Close())
	assert.Len(t, events.events, 4)
}

func TestEnv_DefaultsToPackageLogger(t *testing.T) {
	env := NewEnv(buffer.NewLinear(0, 4), Options{})
	defer env.Close()

	h, err := env.Counters.Insert(nil)
	require.NoError(t, err)
	assert.True(t, env.Counters.Destroy(h))
}
