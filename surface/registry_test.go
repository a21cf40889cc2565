package surface

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/signal"
)

func okImpl(c *Call) signal.Code { return signal.Ok }

func TestRegister_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fn   *Function
	}{
		{"no impl", &Function{Name: "f", Convention: signal.Infallible}},
		{"bad symbol", &Function{Name: "Bad-Name", Convention: signal.Infallible, Impl: okImpl}},
		{"status without s32", &Function{
			Name:       "f",
			Signature:  abi.Signature{Result: abi.Returns(abi.F64)},
			Convention: signal.Status,
			Failures:   []signal.Code{signal.InvalidInput},
			Impl:       okImpl,
		}},
		{"sentinel f64", &Function{
			Name:       "f",
			Signature:  abi.Signature{Result: abi.Returns(abi.F64)},
			Convention: signal.Sentinel,
			Failures:   []signal.Code{signal.InvalidInput},
			Impl:       okImpl,
		}},
		{"tagged plain struct", &Function{
			Name:       "f",
			Signature:  abi.Signature{Result: abi.Returns(abi.StructValue(PointDef))},
			Convention: signal.Tagged,
			Failures:   []signal.Code{signal.DomainError},
			Impl:       okImpl,
		}},
		{"undocumented failures", &Function{
			Name:       "f",
			Signature:  abi.Signature{Result: abi.Returns(abi.S32)},
			Convention: signal.Status,
			Impl:       okImpl,
		}},
		{"infallible with failures", &Function{
			Name:       "f",
			Convention: signal.Infallible,
			Failures:   []signal.Code{signal.DomainError},
			Impl:       okImpl,
		}},
		{"infallible struct result", &Function{
			Name:       "f",
			Signature:  abi.Signature{Result: abi.Returns(abi.StructValue(PointDef))},
			Convention: signal.Infallible,
			Impl:       okImpl,
		}},
		{"struct result with other failures", &Function{
			Name:       "f",
			Signature:  abi.Signature{Result: abi.Returns(abi.StructValue(PointDef))},
			Convention: signal.Infallible,
			Failures:   []signal.Code{signal.DomainError},
			Impl:       okImpl,
		}},
		{"ok as failure", &Function{
			Name:       "f",
			Signature:  abi.Signature{Result: abi.Returns(abi.S32)},
			Convention: signal.Status,
			Failures:   []signal.Code{signal.Ok},
			Impl:       okImpl,
		}},
		{"release with result", &Function{
			Name:       "f",
			Signature:  abi.Signature{Result: abi.Returns(abi.S32)},
			Convention: signal.Release,
			Impl:       okImpl,
		}},
		{"borrowed string result", &Function{
			Name:       "f",
			Signature:  abi.Signature{Result: abi.Returns(abi.CString)},
			Convention: signal.Sentinel,
			Failures:   []signal.Code{signal.NullInput},
			Impl:       okImpl,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.fn)
			require.Error(t, err)
			kind, ok := errors.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, errors.KindRegistration, kind)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	r := NewRegistry()
	f := &Function{Name: "f", Convention: signal.Infallible, Impl: okImpl}
	require.NoError(t, r.Register(f))
	assert.Error(t, r.Register(&Function{Name: "f", Convention: signal.Infallible, Impl: okImpl}))
	assert.Equal(t, 1, r.Len())
}

func TestRegister_Lowering(t *testing.T) {
	f, ok := Default().Lookup("point_midpoint")
	require.True(t, ok)
	params, results := f.Lowered()
	assert.Len(t, params, 5, "two flattened points and a retptr")
	assert.Equal(t, []api.ValueType{api.ValueTypeI32}, results, "status code")
	assert.Equal(t, 5, f.StackSize())

	f, _ = Default().Lookup("get_version")
	params, results = f.Lowered()
	assert.Empty(t, params)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, f.StackSize())
}

func TestInvoke_ContainsPanics(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Function{
		Name:       "explode",
		Signature:  abi.Signature{Params: []abi.Param{{Name: "s", Type: abi.CString}}, Result: abi.Returns(abi.OwnedCString)},
		Convention: signal.Sentinel,
		Failures:   []signal.Code{signal.InternalFault},
		Impl: func(c *Call) signal.Code {
			c.Stack[0] = 1234
			panic("boom")
		},
	}))

	env := NewEnv(buffer.NewLinear(0, 4), Options{})
	f, _ := r.Lookup("explode")
	stack := []uint64{0}
	code := f.Invoke(context.Background(), env, stack)

	assert.Equal(t, signal.InternalFault, code)
	assert.Zero(t, stack[0], "partial results are replaced by the sentinel")
	assert.Equal(t, signal.InternalFault, env.LastCode())
	assert.Equal(t, uint64(1), env.Boundary().Faults())
}
