package signal

import (
	"sync"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/layout"
)

// Result is the tagged-result convention: Value is meaningful only when
// Success is true, and Code is Ok exactly when Success is true.
type Result[T any] struct {
	Value   T
	Code    Code
	Success bool
}

// Succeed returns a successful result.
func Succeed[T any](v T) Result[T] {
	return Result[T]{Success: true, Value: v, Code: Ok}
}

// Fail returns a failed result with a zero value.
func Fail[T any](code Code) Result[T] {
	return Result[T]{Code: code}
}

// Err returns nil on success or the failure as an *Error.
func (r Result[T]) Err(symbol string) error {
	if r.Success {
		return nil
	}
	return r.Code.Err(symbol)
}

var (
	taggedMu      sync.Mutex
	taggedDefs    = map[abi.Kind]*abi.StructDef{}
	taggedLayouts = map[abi.Kind]*layout.Struct{}
)

// TaggedDef returns the struct {success: bool, value: T, code: s32} for a
// primitive value kind. The same *StructDef is returned on every call.
func TaggedDef(k abi.Kind) *abi.StructDef {
	taggedMu.Lock()
	defer taggedMu.Unlock()
	return taggedDef(k)
}

func taggedDef(k abi.Kind) *abi.StructDef {
	if def, ok := taggedDefs[k]; ok {
		return def
	}
	def := &abi.StructDef{
		Name: "result_" + k.String(),
		Fields: []abi.Field{
			{Name: "success", Kind: abi.KindBool},
			{Name: "value", Kind: k},
			{Name: "code", Kind: abi.KindS32},
		},
	}
	taggedDefs[k] = def
	return def
}

// TaggedLayout returns the layout of TaggedDef(k).
func TaggedLayout(k abi.Kind) *layout.Struct {
	taggedMu.Lock()
	defer taggedMu.Unlock()
	if s, ok := taggedLayouts[k]; ok {
		return s
	}
	s := layout.MustNew(taggedDef(k))
	taggedLayouts[k] = s
	return s
}

// TaggedType returns the boundary type of a tagged result of kind k.
func TaggedType(k abi.Kind) abi.Type {
	return abi.StructValue(TaggedDef(k))
}

// WriteTagged stores a tagged result at ptr. valueBits uses the raw-bits
// encoding of the layout package and is forced to zero on failure.
func WriteTagged(mem ffibridge.Memory, ptr uint32, k abi.Kind, code Code, valueBits uint64) error {
	success := code == Ok
	if !success {
		valueBits = 0
	}
	return TaggedLayout(k).Encode(mem, ptr, []uint64{layout.Bool(success), valueBits, layout.I32(int32(code))})
}

// ReadTagged loads a tagged result from ptr.
func ReadTagged(mem ffibridge.Memory, ptr uint32, k abi.Kind) (success bool, valueBits uint64, code Code, err error) {
	fields, err := TaggedLayout(k).Decode(mem, ptr)
	if err != nil {
		return false, 0, 0, err
	}
	return fields[0] != 0, fields[1], Code(layout.AsI32(fields[2])), nil
}
