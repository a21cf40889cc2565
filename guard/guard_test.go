package guard

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/signal"
)

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) Trace(_ string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func TestCall_NormalReturn(t *testing.T) {
	rec := &recorder{}
	b := New(WithTracer(rec))

	code, fault := b.Call("add", func() signal.Code { return signal.DomainError })

	assert.Equal(t, signal.DomainError, code)
	assert.Nil(t, fault)
	assert.Equal(t, []State{StateEntered, StateExecuting, StateNormalReturn, StateReturned}, rec.states)
	assert.Zero(t, b.Faults())
}

func TestCall_ContainedFault(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rec := &recorder{}
	var hooked *Fault
	b := New(WithTracer(rec), WithLogger(zap.New(core)), WithFaultHook(func(f *Fault) { hooked = f }))

	code, fault := b.Call("factorial", func() signal.Code {
		panic("overflow")
	})

	assert.Equal(t, signal.InternalFault, code)
	require.NotNil(t, fault)
	assert.Equal(t, "factorial", fault.Function)
	assert.Equal(t, "overflow", fault.Value)
	assert.NotEqual(t, uuid.Nil, fault.ID)
	assert.NotEmpty(t, fault.Stack)
	assert.Same(t, fault, hooked)
	assert.Equal(t, uint64(1), b.Faults())

	assert.Equal(t, []State{StateEntered, StateExecuting, StateContainedFault, StateReturned}, rec.states)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, fault.ID.String(), entries[0].ContextMap()["fault_id"])

	kind, ok := errors.KindOf(fault.Err())
	require.True(t, ok)
	assert.Equal(t, errors.KindInternalFault, kind)
	assert.Equal(t, signal.InternalFault, signal.FromError(fault.Err()))
}

func TestCall_RuntimeErrorContained(t *testing.T) {
	b := New()
	code, fault := b.Call("index", func() signal.Code {
		var s []int
		_ = s[3]
		return signal.Ok
	})
	assert.Equal(t, signal.InternalFault, code)
	require.NotNil(t, fault)
	assert.Contains(t, fault.Error(), "index")
}

func TestRun(t *testing.T) {
	b := New()

	assert.Equal(t, 42, Run(b, "ok", -1, func() int { return 42 }))
	assert.Equal(t, -1, Run(b, "bad", -1, func() int { panic("boom") }))
	assert.Equal(t, uint64(1), b.Faults())
}

func TestCall_FaultIDsAreUnique(t *testing.T) {
	b := New()
	seen := map[uuid.UUID]bool{}
	for i := 0; i < 10; i++ {
		_, f := b.Call("p", func() signal.Code { panic(i) })
		require.NotNil(t, f)
		assert.False(t, seen[f.ID])
		seen[f.ID] = true
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "contained_fault", StateContainedFault.String())
	assert.Equal(t, "state(9)", State(9).String())
}
