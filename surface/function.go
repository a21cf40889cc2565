package surface

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/signal"
)

// Impl is the body of an exported function. It reads its arguments from
// the call, writes its results on success, and returns the outcome code.
// On failure the surface writes the signal, not the Impl.
type Impl func(c *Call) signal.Code

// Function is one exported symbol.
type Function struct {
	Impl       Impl
	Name       string
	Doc        string
	Signature  abi.Signature
	Failures   []signal.Code
	Convention signal.Convention

	// Filled in by Register.
	sentinel   uint64
	retIndex   int
	taggedKind abi.Kind
	names      []string
	params     []api.ValueType
	results    []api.ValueType
}

// RetPtrFailures are the codes an infallible function returning a struct
// reports once lowered: its retptr can be null or out of bounds.
var RetPtrFailures = []signal.Code{signal.NullInput, signal.InvalidInput}

// LoweredConvention is the convention of the lowered form. An infallible
// function returning a struct by value takes a retptr when lowered and
// returns an i32 status, so it behaves as a status function there.
func (f *Function) LoweredConvention() signal.Convention {
	if f.Convention == signal.Infallible && f.Signature.RetPtr() {
		return signal.Status
	}
	return f.Convention
}

// Sentinel returns the raw stack value a sentinel function returns on
// failure.
func (f *Function) Sentinel() uint64 { return f.sentinel }

// TaggedKind returns the value kind of a tagged function's result.
func (f *Function) TaggedKind() abi.Kind { return f.taggedKind }

// Lowered returns the core WebAssembly parameter and result types.
func (f *Function) Lowered() (params, results []api.ValueType) {
	return f.params, f.results
}

// StackSize returns the number of uint64 slots an invocation needs.
func (f *Function) StackSize() int {
	return max(len(f.params), len(f.results), 1)
}

// Fails reports whether code is one of the documented failures.
func (f *Function) Fails(code signal.Code) bool {
	for _, c := range f.Failures {
		if c == code {
			return true
		}
	}
	return false
}

// Invoke runs the function against env with its lowered arguments in
// stack, wazero style: parameters in, results out at stack[0]. The call is
// wrapped by env's containment boundary and failures are written according
// to the function's convention.
func (f *Function) Invoke(ctx context.Context, env *Env, stack []uint64) signal.Code {
	c := &Call{Context: ctx, Env: env, Stack: stack, Function: f}

	var code signal.Code
	if f.Signature.RetPtr() && c.Ptr(f.retIndex) == 0 {
		code = signal.NullInput
	} else {
		code, _ = env.boundary.Call(f.Name, func() signal.Code {
			return f.Impl(c)
		})
	}

	switch {
	case code != signal.Ok:
		f.fail(c, code)
	case f.LoweredConvention() != f.Convention:
		stack[0] = api.EncodeI32(int32(signal.Ok))
	}
	return code
}

func (f *Function) fail(c *Call, code signal.Code) {
	c.Env.setLastCode(code)
	Logger().Debug("call failed",
		zap.String("function", f.Name),
		zap.Stringer("code", code))

	switch f.LoweredConvention() {
	case signal.Sentinel:
		c.Stack[0] = f.sentinel
	case signal.Status:
		c.Stack[0] = api.EncodeI32(int32(code))
	case signal.Tagged:
		ptr := c.Ptr(f.retIndex)
		if ptr == 0 {
			return
		}
		if err := signal.WriteTagged(c.Env.Memory, ptr, f.taggedKind, code, 0); err != nil {
			Logger().Warn("tagged result not written",
				zap.String("function", f.Name),
				zap.Uint32("retptr", ptr),
				zap.Error(err))
		}
	case signal.Infallible:
		if len(f.results) > 0 {
			c.Stack[0] = 0
		}
	}
}
