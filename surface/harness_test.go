package surface

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/layout"
	"github.com/wippyai/ffi-bridge/signal"
)

// harness drives the default surface against a private linear memory the
// way a WebAssembly guest would.
type harness struct {
	t   *testing.T
	mem *buffer.Linear
	env *Env
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := buffer.NewLinear(0, 64)
	env := NewEnv(mem, Options{})
	t.Cleanup(func() { _ = env.Close() })
	return &harness{t: t, mem: mem, env: env}
}

func (h *harness) fn(name string) *Function {
	h.t.Helper()
	f, ok := Default().Lookup(name)
	require.True(h.t, ok, "symbol %s not registered", name)
	return f
}

// call invokes name with lowered arguments and returns the stack.
func (h *harness) call(name string, args ...uint64) ([]uint64, signal.Code) {
	h.t.Helper()
	f := h.fn(name)
	params, _ := f.Lowered()
	require.Len(h.t, args, len(params), "argument count for %s", name)

	stack := make([]uint64, f.StackSize())
	copy(stack, args)
	code := f.Invoke(context.Background(), h.env, stack)
	return stack, code
}

func (h *harness) cstr(s string) uint64 {
	h.t.Helper()
	ptr, err := buffer.WriteCString(h.mem, h.env.Arena, s)
	require.NoError(h.t, err)
	return api.EncodeU32(ptr)
}

func (h *harness) ints(values ...int32) (ptr, n uint64) {
	h.t.Helper()
	p, err := buffer.WriteInt32s(h.mem, h.env.Arena, values)
	require.NoError(h.t, err)
	return api.EncodeU32(p), uint64(len(values))
}

func (h *harness) alloc(size uint32) uint32 {
	h.t.Helper()
	ptr, err := h.env.Arena.Alloc(size, 8)
	require.NoError(h.t, err)
	require.NoError(h.t, h.mem.Write(ptr, make([]byte, size)))
	return ptr
}

func (h *harness) readString(ptr uint64) string {
	h.t.Helper()
	s, err := buffer.ReadCString(h.mem, api.DecodeU32(ptr), 0)
	require.NoError(h.t, err)
	return s
}

// takeString reads an owned result and releases it through free_string.
func (h *harness) takeString(ptr uint64) string {
	h.t.Helper()
	s := h.readString(ptr)
	_, code := h.call("free_string", ptr)
	require.Equal(h.t, signal.Ok, code)
	return s
}

func (h *harness) tagged(name string, args ...uint64) (success bool, bits uint64, code signal.Code) {
	h.t.Helper()
	f := h.fn(name)
	ret := h.alloc(24)
	_, callCode := h.call(name, append(args, api.EncodeU32(ret))...)

	success, bits, code, err := signal.ReadTagged(h.mem, ret, f.TaggedKind())
	require.NoError(h.t, err)
	require.Equal(h.t, callCode, code)
	return success, bits, code
}

func (h *harness) point(ptr uint32) (x, y float64) {
	h.t.Helper()
	fields, err := PointLayout().Decode(h.mem, ptr)
	require.NoError(h.t, err)
	return layout.AsF64(fields[0]), layout.AsF64(fields[1])
}

func f64(v float64) uint64 { return api.EncodeF64(v) }
func i32(v int32) uint64   { return api.EncodeI32(v) }

// validArgs builds a lowered argument list where every parameter is
// usable, and reports the slot each declared parameter starts at.
func (h *harness) validArgs(f *Function) (args []uint64, slots []int) {
	h.t.Helper()
	for _, p := range f.Signature.Params {
		slots = append(slots, len(args))
		switch t := p.Type; t.Kind {
		case abi.KindStruct:
			for range t.Struct.Fields {
				args = append(args, f64(1))
			}
		case abi.KindF64:
			args = append(args, f64(1))
		case abi.KindS32:
			args = append(args, i32(1))
		case abi.KindU32:
			args = append(args, 3)
		case abi.KindHandle:
			args = append(args, h.newObject(t.Handle))
		case abi.KindPointer:
			switch t.Pointee {
			case abi.PointeeCString:
				args = append(args, h.cstr("abc"))
			case abi.PointeeArray:
				ptr, _ := h.ints(3, 1, 2)
				args = append(args, ptr)
			default:
				args = append(args, api.EncodeU32(h.alloc(64)))
			}
		default:
			h.t.Fatalf("%s: no test value for %s", f.Name, p.Type)
		}
	}
	if f.Signature.RetPtr() {
		args = append(args, api.EncodeU32(h.alloc(24)))
	}
	return args, slots
}

func (h *harness) newObject(kind string) uint64 {
	h.t.Helper()
	var stack []uint64
	var code signal.Code
	switch kind {
	case "counter":
		stack, code = h.call("counter_new", i32(0))
	case "calculator":
		stack, code = h.call("calculator_new")
	case "person":
		stack, code = h.call("person_new", h.cstr("Ada"), i32(36))
	default:
		h.t.Fatalf("unknown handle type %s", kind)
	}
	require.Equal(h.t, signal.Ok, code)
	require.NotZero(h.t, stack[0])
	return stack[0]
}
