package surface

import (
	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/layout"
	"github.com/wippyai/ffi-bridge/signal"
)

// PointDef is the point struct: {double x; double y;}, 16 bytes.
var PointDef = &abi.StructDef{
	Name: "point",
	Fields: []abi.Field{
		{Name: "x", Kind: abi.KindF64},
		{Name: "y", Kind: abi.KindF64},
	},
}

var pointLayout = layout.MustNew(PointDef)

// PointLayout returns the computed layout of PointDef.
func PointLayout() *layout.Struct { return pointLayout }

var (
	counterBorrow    = abi.Handle("counter", abi.AccessBorrowed)
	calculatorBorrow = abi.Handle("calculator", abi.AccessBorrowed)
	personBorrow     = abi.Handle("person", abi.AccessBorrowed)

	// OwnedInt32s is a returned s32 array released with free_buffer.
	OwnedInt32s = abi.Array(abi.KindS32, abi.AccessOwned)

	// OutBytes is a caller-owned byte buffer the callee fills.
	OutBytes = abi.Type{Kind: abi.KindPointer, Pointee: abi.PointeeBytes, Elem: abi.KindU8, Access: abi.AccessOut}
)

func tagged(k abi.Kind) *abi.Type {
	return abi.Returns(signal.TaggedType(k))
}

func status() *abi.Type {
	return abi.Returns(abi.S32)
}

func param(name string, t abi.Type) abi.Param {
	return abi.Param{Name: name, Type: t}
}

var (
	stringFailures = []signal.Code{signal.NullInput, signal.InvalidInput, signal.AllocationFailed}
	readFailures   = []signal.Code{signal.NullInput, signal.InvalidInput}
	handleFailures = []signal.Code{signal.InvalidInput}
	createFailures = []signal.Code{signal.AllocationFailed}
)
