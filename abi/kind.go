package abi

import (
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// Kind is the fixed set of value kinds a boundary signature may name.
type Kind uint8

const (
	KindBool Kind = iota
	KindS8
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindS64
	KindU64
	KindF32
	KindF64
	KindPointer
	KindHandle
	KindStruct

	// Native-only kinds. They have no fixed C representation and exist so
	// that validation can name what it rejects.
	KindString
	KindList
)

var kindNames = [...]string{
	KindBool:    "bool",
	KindS8:      "s8",
	KindU8:      "u8",
	KindS16:     "s16",
	KindU16:     "u16",
	KindS32:     "s32",
	KindU32:     "u32",
	KindS64:     "s64",
	KindU64:     "u64",
	KindF32:     "f32",
	KindF64:     "f64",
	KindPointer: "pointer",
	KindHandle:  "handle",
	KindStruct:  "struct",
	KindString:  "string",
	KindList:    "list",
}

var kindCNames = [...]string{
	KindBool:    "bool",
	KindS8:      "int8_t",
	KindU8:      "uint8_t",
	KindS16:     "int16_t",
	KindU16:     "uint16_t",
	KindS32:     "int32_t",
	KindU32:     "uint32_t",
	KindS64:     "int64_t",
	KindU64:     "uint64_t",
	KindF32:     "float",
	KindF64:     "double",
	KindPointer: "void*",
	KindHandle:  "uintptr_t",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether k is a fixed-width scalar.
func (k Kind) IsPrimitive() bool {
	return k <= KindF64
}

// IsNativeOnly reports whether k is a dynamically sized native type that
// must never cross the boundary by value.
func (k Kind) IsNativeOnly() bool {
	return k == KindString || k == KindList
}

// IsFloat reports whether k is f32 or f64.
func (k Kind) IsFloat() bool {
	return k == KindF32 || k == KindF64
}

// IsSigned reports whether k is a signed integer.
func (k Kind) IsSigned() bool {
	switch k {
	case KindS8, KindS16, KindS32, KindS64:
		return true
	}
	return false
}

// Size returns the in-memory size in bytes. Pointers and handles are
// 32-bit in a wasm32 address space.
func (k Kind) Size() uint32 {
	switch k {
	case KindBool, KindS8, KindU8:
		return 1
	case KindS16, KindU16:
		return 2
	case KindS32, KindU32, KindF32, KindPointer, KindHandle:
		return 4
	case KindS64, KindU64, KindF64:
		return 8
	default:
		return 0
	}
}

// Align returns the natural alignment, which equals the size for scalars.
func (k Kind) Align() uint32 {
	if s := k.Size(); s > 0 {
		return s
	}
	return 1
}

// CName returns the C type name for a scalar kind.
func (k Kind) CName() string {
	if int(k) < len(kindCNames) && kindCNames[k] != "" {
		return kindCNames[k]
	}
	return ""
}

// ValueType returns the core WebAssembly value type carrying k.
func (k Kind) ValueType() api.ValueType {
	switch k {
	case KindS64, KindU64:
		return api.ValueTypeI64
	case KindF32:
		return api.ValueTypeF32
	case KindF64:
		return api.ValueTypeF64
	default:
		return api.ValueTypeI32
	}
}

// WIT returns the WIT type for a scalar kind. Addresses and handles are
// carried as u32.
func (k Kind) WIT() wit.Type {
	switch k {
	case KindBool:
		return wit.Bool{}
	case KindS8:
		return wit.S8{}
	case KindU8:
		return wit.U8{}
	case KindS16:
		return wit.S16{}
	case KindU16:
		return wit.U16{}
	case KindS32:
		return wit.S32{}
	case KindU32, KindPointer, KindHandle:
		return wit.U32{}
	case KindS64:
		return wit.S64{}
	case KindU64:
		return wit.U64{}
	case KindF32:
		return wit.F32{}
	case KindF64:
		return wit.F64{}
	case KindString:
		return wit.String{}
	default:
		return nil
	}
}
