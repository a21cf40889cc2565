package surface

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/handle"
	"github.com/wippyai/ffi-bridge/layout"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

// Call is one invocation in flight. Argument accessors take the index of
// the lowered parameter.
type Call struct {
	Context  context.Context
	Env      *Env
	Function *Function
	Stack    []uint64
}

func (c *Call) I32(i int) int32   { return api.DecodeI32(c.Stack[i]) }
func (c *Call) U32(i int) uint32  { return api.DecodeU32(c.Stack[i]) }
func (c *Call) F64(i int) float64 { return api.DecodeF64(c.Stack[i]) }
func (c *Call) Ptr(i int) uint32  { return api.DecodeU32(c.Stack[i]) }

// Point reads a point passed by value in slots i and i+1.
func (c *Call) Point(i int) native.Point {
	return native.Point{X: c.F64(i), Y: c.F64(i + 1)}
}

// CString copies the borrowed string whose address is in slot i.
func (c *Call) CString(i int) (string, error) {
	return buffer.ReadCString(c.Env.Memory, c.Ptr(i), c.Env.MaxStringLen)
}

// Int32s copies the borrowed array addressed by slot i with its length in
// slot i+1. A null array is rejected even when the length is zero.
func (c *Call) Int32s(i int) ([]int32, error) {
	ptr := c.Ptr(i)
	if ptr == 0 {
		return nil, errors.NullInput(errors.PhaseUnmarshal, c.Function.names[i])
	}
	return buffer.ReadInt32s(c.Env.Memory, ptr, c.U32(i+1))
}

func (c *Call) ReturnI32(v int32)   { c.Stack[0] = api.EncodeI32(v) }
func (c *Call) ReturnU32(v uint32)  { c.Stack[0] = api.EncodeU32(v) }
func (c *Call) ReturnF64(v float64) { c.Stack[0] = api.EncodeF64(v) }

func (c *Call) ReturnBool(v bool) {
	if v {
		c.Stack[0] = 1
	} else {
		c.Stack[0] = 0
	}
}

// ReturnString hands a new owned string to the caller.
func (c *Call) ReturnString(s string) signal.Code {
	ptr, err := buffer.WriteCString(c.Env.Memory, c.Env.Arena, s)
	if err != nil {
		return c.Fail(err)
	}
	c.Stack[0] = api.EncodeU32(ptr)
	return signal.Ok
}

// ReturnTagged writes a successful tagged result through the retptr.
func (c *Call) ReturnTagged(valueBits uint64) signal.Code {
	f := c.Function
	if err := signal.WriteTagged(c.Env.Memory, c.Ptr(f.retIndex), f.taggedKind, signal.Ok, valueBits); err != nil {
		return c.Fail(err)
	}
	return signal.Ok
}

// ReturnPoint writes a point result through the retptr.
func (c *Call) ReturnPoint(p native.Point) signal.Code {
	if err := pointLayout.Encode(c.Env.Memory, c.Ptr(c.Function.retIndex), pointValues(p)); err != nil {
		return c.Fail(err)
	}
	return signal.Ok
}

// Fail maps err onto the code reported to the caller.
func (c *Call) Fail(err error) signal.Code {
	code := signal.FromError(err)
	Logger().Debug("boundary error",
		zap.String("function", c.Function.Name),
		zap.Stringer("code", code),
		zap.Error(err))
	return code
}

func pointValues(p native.Point) []uint64 {
	return []uint64{layout.F64(p.X), layout.F64(p.Y)}
}

// Write copies data into the caller's memory at ptr.
func (c *Call) Write(ptr uint32, data []byte) error {
	return wrapWrite(ptr, c.Env.Memory.Write(ptr, data))
}

// WriteU32 stores v at ptr.
func (c *Call) WriteU32(ptr, v uint32) error {
	return wrapWrite(ptr, c.Env.Memory.WriteU32(ptr, v))
}

// WriteU64 stores v at ptr.
func (c *Call) WriteU64(ptr uint32, v uint64) error {
	return wrapWrite(ptr, c.Env.Memory.WriteU64(ptr, v))
}

func wrapWrite(ptr uint32, err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errors.PhaseMarshal, errors.KindOutOfBounds).
		Value(ptr).
		Cause(err).
		Build()
}

// ReturnStatus completes a status-convention call successfully.
func (c *Call) ReturnStatus() signal.Code {
	c.ReturnI32(int32(signal.Ok))
	return signal.Ok
}

// Handle reads the handle in slot i.
func (c *Call) Handle(i int) handle.Handle {
	return handle.Handle(c.U32(i))
}
