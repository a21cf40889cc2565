package binding

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/handle"
	"github.com/wippyai/ffi-bridge/layout"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
	"github.com/wippyai/ffi-bridge/surface"
)

// out is a scalar slot the callee writes.
type out struct {
	ptr  uint32
	kind abi.Kind
}

// frame is one call being assembled. Errors are sticky: once a step
// fails the remaining steps are skipped and invoke reports it.
type frame struct {
	s       *Session
	fn      *surface.Function
	scratch *buffer.Scratch
	err     error

	args      []uint64
	outs      []out
	copyBack  []func() error
	retptr    uint32
	rawRetPtr bool
	arrayLen  uint32
	bits      uint64
}

func (s *Session) frame(name string) *frame {
	fr := &frame{s: s, scratch: buffer.NewScratch()}
	if s.closed.Load() {
		fr.err = ErrClosed
		return fr
	}
	fn, ok := s.reg.Lookup(name)
	if !ok {
		fr.err = errors.NotFound(errors.PhaseCall, "symbol", name)
		return fr
	}
	fr.fn = fn
	return fr
}

// release frees every argument buffer the frame allocated.
func (fr *frame) release() {
	fr.scratch.Drop(fr.s.env.Arena)
}

func (fr *frame) push(v uint64) { fr.args = append(fr.args, v) }

// alloc reserves a zeroed scratch buffer that lives until release.
func (fr *frame) alloc(size, align uint32) uint32 {
	if fr.err != nil {
		return 0
	}
	ptr, err := fr.s.env.Arena.Alloc(size, align)
	if err != nil {
		fr.err = err
		return 0
	}
	fr.scratch.Track(ptr, size, align)
	if err := fr.s.mem.Write(ptr, make([]byte, max(size, 1))); err != nil {
		fr.err = errors.Wrap(errors.PhaseMarshal, errors.KindOutOfBounds, err, "zero scratch buffer")
	}
	return ptr
}

func (fr *frame) cstring(v string) {
	if fr.err != nil {
		return
	}
	ptr, err := buffer.WriteCString(fr.s.mem, fr.s.env.Arena, v)
	if err != nil {
		fr.err = err
		return
	}
	fr.scratch.Track(ptr, uint32(len(v)+1), 1)
	fr.push(api.EncodeU32(ptr))
}

func (fr *frame) int32s(values []int32) uint32 {
	if fr.err != nil {
		return 0
	}
	ptr, err := buffer.WriteInt32s(fr.s.mem, fr.s.env.Arena, values)
	if err != nil {
		fr.err = err
		return 0
	}
	n := uint32(len(values))
	fr.scratch.Track(ptr, n*4, 4)
	fr.arrayLen = n
	fr.push(api.EncodeU32(ptr))
	fr.push(uint64(n))
	return ptr
}

func (fr *frame) mismatch(p abi.Param, v any) {
	fr.err = errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
		Path(fr.fn.Name, p.Name).
		CType(p.Type.CName()).
		Detail("cannot pass %T as %s", v, p.Type).
		Build()
}

// marshal lowers args against the declared parameters.
func (fr *frame) marshal(args []any) {
	if fr.err != nil {
		return
	}
	params := fr.fn.Signature.Params
	next := 0
	take := func() (any, bool) {
		if next >= len(args) {
			return nil, false
		}
		next++
		return args[next-1], true
	}

	for i := 0; i < len(params) && fr.err == nil; i++ {
		p := params[i]
		t := p.Type

		if t.Kind == abi.KindPointer && t.Access == abi.AccessOut && t.Pointee == abi.PointeeScalar {
			ptr := fr.alloc(t.Elem.Size(), t.Elem.Align())
			fr.outs = append(fr.outs, out{ptr: ptr, kind: t.Elem})
			fr.push(api.EncodeU32(ptr))
			continue
		}

		v, ok := take()
		if !ok {
			break
		}
		switch {
		case t.Kind == abi.KindPointer && t.Pointee == abi.PointeeArray:
			values, ok := v.([]int32)
			if !ok {
				fr.mismatch(p, v)
				break
			}
			ptr := fr.int32s(values)
			i++ // the length parameter is filled in
			if t.Access == abi.AccessMutable {
				fr.copyBack = append(fr.copyBack, func() error {
					sorted, err := buffer.ReadInt32s(fr.s.mem, ptr, uint32(len(values)))
					copy(values, sorted)
					return err
				})
			}
		case t.Kind == abi.KindPointer && t.Pointee == abi.PointeeCString && !t.Owned():
			str, ok := v.(string)
			if !ok {
				fr.mismatch(p, v)
				break
			}
			fr.cstring(str)
		case t.Kind == abi.KindPointer && t.Pointee == abi.PointeeStruct:
			fr.structPtr(p, v)
		case t.Kind == abi.KindPointer && t.Pointee == abi.PointeeBytes && !t.Owned():
			dest, ok := v.([]byte)
			if !ok {
				fr.mismatch(p, v)
				break
			}
			ptr := fr.alloc(uint32(len(dest)), 1)
			fr.push(api.EncodeU32(ptr))
			fr.copyBack = append(fr.copyBack, func() error {
				data, err := fr.s.mem.Read(ptr, uint32(len(dest)))
				copy(dest, data)
				return err
			})
		case t.Kind == abi.KindStruct:
			pt, ok := v.(native.Point)
			if !ok || t.Struct != surface.PointDef {
				fr.mismatch(p, v)
				break
			}
			fr.push(api.EncodeF64(pt.X))
			fr.push(api.EncodeF64(pt.Y))
		default:
			bits, ok := scalarBits(t.Kind, v)
			if !ok {
				fr.mismatch(p, v)
				break
			}
			fr.push(bits)
		}
	}

	if fr.err == nil && next != len(args) {
		fr.err = errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Path(fr.fn.Name).
			Detail("got %d arguments, want %d", len(args), fr.arity()).
			Build()
	}
}

// arity counts the Go arguments Call expects for the function.
func (fr *frame) arity() int {
	n := 0
	params := fr.fn.Signature.Params
	for i := 0; i < len(params); i++ {
		t := params[i].Type
		switch {
		case t.Kind == abi.KindPointer && t.Access == abi.AccessOut && t.Pointee == abi.PointeeScalar:
			continue
		case t.Kind == abi.KindPointer && t.Pointee == abi.PointeeArray:
			i++
		}
		n++
	}
	return n
}

func (fr *frame) structPtr(p abi.Param, v any) {
	pt, ok := v.(*native.Point)
	if !ok || pt == nil || p.Type.Struct != surface.PointDef {
		fr.mismatch(p, v)
		return
	}
	l := surface.PointLayout()
	ptr := fr.alloc(l.Size(), l.Align())
	if fr.err != nil {
		return
	}
	if err := l.Encode(fr.s.mem, ptr, []uint64{layout.F64(pt.X), layout.F64(pt.Y)}); err != nil {
		fr.err = err
		return
	}
	fr.push(api.EncodeU32(ptr))
	fr.copyBack = append(fr.copyBack, func() error {
		fields, err := l.Decode(fr.s.mem, ptr)
		if err != nil {
			return err
		}
		pt.X, pt.Y = layout.AsF64(fields[0]), layout.AsF64(fields[1])
		return nil
	})
}

func scalarBits(k abi.Kind, v any) (uint64, bool) {
	switch k {
	case abi.KindS32:
		switch n := v.(type) {
		case int32:
			return api.EncodeI32(n), true
		case int:
			if n < math.MinInt32 || n > math.MaxInt32 {
				return 0, false
			}
			return api.EncodeI32(int32(n)), true
		}
	case abi.KindU32:
		switch n := v.(type) {
		case uint32:
			return api.EncodeU32(n), true
		case int:
			if n < 0 || n > math.MaxUint32 {
				return 0, false
			}
			return api.EncodeU32(uint32(n)), true
		}
	case abi.KindF64:
		switch n := v.(type) {
		case float64:
			return api.EncodeF64(n), true
		case int:
			return api.EncodeF64(float64(n)), true
		}
	case abi.KindHandle, abi.KindPointer:
		switch n := v.(type) {
		case handle.Handle:
			return api.EncodeU32(uint32(n)), true
		case uint32:
			return api.EncodeU32(n), true
		}
	}
	return 0, false
}

// invoke appends the retptr when needed, runs the function and checks its
// error signal the way a foreign host would.
func (fr *frame) invoke(ctx context.Context) ([]uint64, error) {
	if fr.err != nil {
		return nil, fr.err
	}
	f := fr.fn

	if f.Signature.RetPtr() {
		if fr.rawRetPtr {
			if len(fr.args) > 0 {
				fr.retptr = api.DecodeU32(fr.args[len(fr.args)-1])
			}
		} else {
			l, err := fr.resultLayout()
			if err != nil {
				return nil, err
			}
			fr.retptr = fr.alloc(l.Size(), l.Align())
			fr.push(api.EncodeU32(fr.retptr))
		}
	}
	if fr.err != nil {
		return nil, fr.err
	}

	params, _ := f.Lowered()
	if len(fr.args) != len(params) {
		return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Path(f.Name).
			Detail("got %d lowered arguments, want %d", len(fr.args), len(params)).
			Build()
	}

	stack := make([]uint64, f.StackSize())
	copy(stack, fr.args)
	f.Invoke(ctx, fr.s.env, stack)

	if err := fr.check(stack); err != nil {
		return stack, err
	}
	for _, fn := range fr.copyBack {
		if err := fn(); err != nil {
			return stack, err
		}
	}
	return stack, nil
}

func (fr *frame) resultLayout() (*layout.Struct, error) {
	f := fr.fn
	if f.Convention == signal.Tagged {
		return signal.TaggedLayout(f.TaggedKind()), nil
	}
	def := f.Signature.Result.Struct
	return fr.s.resultLayout(def.Name, func() (*layout.Struct, error) {
		return layout.New(def)
	})
}

// check reads the error signal of a finished call.
func (fr *frame) check(stack []uint64) error {
	f := fr.fn
	var code signal.Code

	switch f.LoweredConvention() {
	case signal.Sentinel:
		if stack[0] == f.Sentinel() {
			code = fr.s.env.LastCode()
			if code == signal.Ok {
				code = signal.InternalFault
			}
		}
	case signal.Status:
		code = signal.Code(api.DecodeI32(stack[0]))
	case signal.Tagged:
		if fr.retptr == 0 {
			code = signal.NullInput
			break
		}
		success, bits, c, err := signal.ReadTagged(fr.s.mem, fr.retptr, f.TaggedKind())
		if err != nil {
			return err
		}
		if !success {
			code = c
		}
		fr.bits = bits
	}
	return code.Err(f.Name)
}

// unmarshal decodes the result and out scalars of a successful call,
// releasing owned results through their release symbols.
func (fr *frame) unmarshal(ctx context.Context, stack []uint64) ([]any, error) {
	f := fr.fn
	var values []any

	rt := f.Signature.Result
	switch {
	case rt == nil, f.Convention == signal.Status:
	case f.Convention == signal.Tagged:
		values = append(values, decodeScalar(f.TaggedKind(), fr.bits))
	case rt.Kind == abi.KindStruct:
		l, err := fr.resultLayout()
		if err != nil {
			return nil, err
		}
		fields, err := l.Decode(fr.s.mem, fr.retptr)
		if err != nil {
			return nil, err
		}
		if rt.Struct == surface.PointDef {
			values = append(values, native.Point{X: layout.AsF64(fields[0]), Y: layout.AsF64(fields[1])})
		} else {
			values = append(values, fields)
		}
	case rt.Kind == abi.KindPointer && rt.Owned():
		v, err := fr.takeOwned(ctx, *rt, api.DecodeU32(stack[0]))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	default:
		values = append(values, decodeScalar(rt.Kind, stack[0]))
	}

	for _, o := range fr.outs {
		bits, err := readOut(fr.s.mem, o)
		if err != nil {
			return nil, err
		}
		values = append(values, decodeScalar(o.kind, bits))
	}
	return values, nil
}

// takeOwned copies an owned result out and releases it exactly once,
// whether or not the copy succeeded.
func (fr *frame) takeOwned(ctx context.Context, t abi.Type, ptr uint32) (any, error) {
	switch t.Pointee {
	case abi.PointeeCString:
		str, err := buffer.ReadCString(fr.s.mem, ptr, 0)
		if rerr := fr.s.release(ctx, "free_string", api.EncodeU32(ptr)); err == nil {
			err = rerr
		}
		return str, err
	case abi.PointeeArray:
		values, err := buffer.ReadInt32s(fr.s.mem, ptr, fr.arrayLen)
		if rerr := fr.s.release(ctx, "free_buffer", api.EncodeU32(ptr), uint64(fr.arrayLen*4)); err == nil {
			err = rerr
		}
		return values, err
	default:
		return ptr, nil
	}
}

func readOut(mem *buffer.Linear, o out) (uint64, error) {
	switch o.kind.Size() {
	case 8:
		return mem.ReadU64(o.ptr)
	default:
		v, err := mem.ReadU32(o.ptr)
		return uint64(v), err
	}
}

func decodeScalar(k abi.Kind, bits uint64) any {
	switch k {
	case abi.KindBool:
		return bits != 0
	case abi.KindS32:
		return int32(bits)
	case abi.KindU32:
		return uint32(bits)
	case abi.KindS64:
		return int64(bits)
	case abi.KindU64:
		return bits
	case abi.KindF64:
		return math.Float64frombits(bits)
	case abi.KindHandle:
		return handle.Handle(uint32(bits))
	default:
		return bits
	}
}
