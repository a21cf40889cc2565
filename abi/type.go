package abi

import (
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// Pointee describes what a pointer-kind Type addresses.
type Pointee uint8

const (
	PointeeNone    Pointee = iota
	PointeeCString         // NUL-terminated UTF-8
	PointeeArray           // Elem values, count passed in the next parameter
	PointeeBytes           // raw bytes, length passed separately
	PointeeScalar          // a single Elem value
	PointeeStruct          // a Struct value
)

// Access states what the callee may do with a pointer and who owns it
// after the call.
type Access uint8

const (
	AccessBorrowed Access = iota // read-only for the duration of the call
	AccessMutable                // read-write for the duration of the call
	AccessOut                    // write-only result slot owned by the caller
	AccessOwned                  // ownership transfers to the receiver
)

var accessNames = [...]string{
	AccessBorrowed: "borrowed",
	AccessMutable:  "mutable",
	AccessOut:      "out",
	AccessOwned:    "owned",
}

func (a Access) String() string {
	if int(a) < len(accessNames) {
		return accessNames[a]
	}
	return "unknown"
}

// Field is one member of a fixed-layout struct.
type Field struct {
	Name string
	Kind Kind
}

// StructDef names a fixed-layout struct. Fields are laid out in order.
type StructDef struct {
	Name   string
	Fields []Field
}

// CName returns the C typedef name, e.g. "ffi_point".
func (d *StructDef) CName() string {
	return "ffi_" + d.Name
}

// WIT returns the struct as a WIT record.
func (d *StructDef) WIT() *wit.TypeDef {
	name := d.Name
	fields := make([]wit.Field, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = wit.Field{Name: f.Name, Type: f.Kind.WIT()}
	}
	return &wit.TypeDef{
		Name: &name,
		Kind: &wit.Record{Fields: fields},
	}
}

// Type is a boundary type: a scalar, a pointer with ownership semantics,
// an opaque handle, or a struct passed by value.
type Type struct {
	Struct  *StructDef
	Handle  string
	Kind    Kind
	Pointee Pointee
	Elem    Kind
	Access  Access
}

// Scalar returns the by-value type for a primitive kind.
func Scalar(k Kind) Type { return Type{Kind: k} }

var (
	Bool = Scalar(KindBool)
	S32  = Scalar(KindS32)
	U32  = Scalar(KindU32)
	S64  = Scalar(KindS64)
	U64  = Scalar(KindU64)
	F64  = Scalar(KindF64)

	// CString is a borrowed NUL-terminated UTF-8 input.
	CString = Type{Kind: KindPointer, Pointee: PointeeCString, Elem: KindU8}

	// OwnedCString is a NUL-terminated UTF-8 buffer the receiver must release.
	OwnedCString = Type{Kind: KindPointer, Pointee: PointeeCString, Elem: KindU8, Access: AccessOwned}

	// OwnedBytes is an explicit-length buffer the receiver must release.
	OwnedBytes = Type{Kind: KindPointer, Pointee: PointeeBytes, Elem: KindU8, Access: AccessOwned}
)

// Array returns a pointer to count elements of elem. The count travels in
// the following u32 parameter.
func Array(elem Kind, access Access) Type {
	return Type{Kind: KindPointer, Pointee: PointeeArray, Elem: elem, Access: access}
}

// Out returns a caller-owned slot the callee writes one elem into.
func Out(elem Kind) Type {
	return Type{Kind: KindPointer, Pointee: PointeeScalar, Elem: elem, Access: AccessOut}
}

// StructPtr returns a pointer to a caller-owned struct.
func StructPtr(def *StructDef, access Access) Type {
	return Type{Kind: KindPointer, Pointee: PointeeStruct, Struct: def, Access: access}
}

// StructValue returns a struct passed or returned by value.
func StructValue(def *StructDef) Type {
	return Type{Kind: KindStruct, Struct: def}
}

// Handle returns an opaque handle to a native object of the named type.
func Handle(name string, access Access) Type {
	return Type{Kind: KindHandle, Handle: name, Access: access}
}

// IsPointer reports whether the type is an address into the caller's space.
func (t Type) IsPointer() bool { return t.Kind == KindPointer }

// Owned reports whether ownership of the value transfers across the call.
func (t Type) Owned() bool { return t.Access == AccessOwned }

// CName returns the C spelling of the type.
func (t Type) CName() string {
	switch t.Kind {
	case KindPointer:
		var base string
		switch t.Pointee {
		case PointeeCString:
			base = "char"
		case PointeeStruct:
			base = t.Struct.CName()
		default:
			base = t.Elem.CName()
		}
		if t.Access == AccessBorrowed {
			return "const " + base + "*"
		}
		return base + "*"
	case KindHandle:
		return "ffi_" + t.Handle
	case KindStruct:
		return t.Struct.CName()
	default:
		return t.Kind.CName()
	}
}

// Flat returns the core WebAssembly value types the type occupies as a
// parameter. Structs by value are flattened field by field.
func (t Type) Flat() []api.ValueType {
	if t.Kind == KindStruct && t.Struct != nil {
		out := make([]api.ValueType, len(t.Struct.Fields))
		for i, f := range t.Struct.Fields {
			out[i] = f.Kind.ValueType()
		}
		return out
	}
	return []api.ValueType{t.Kind.ValueType()}
}

// WIT returns the WIT type describing the value as it sits in memory.
func (t Type) WIT() wit.Type {
	if t.Kind == KindStruct && t.Struct != nil {
		return t.Struct.WIT()
	}
	return t.Kind.WIT()
}

// String renders the type for listings, e.g. "owned cstring" or "point".
func (t Type) String() string {
	switch t.Kind {
	case KindPointer:
		var b strings.Builder
		if t.Access != AccessBorrowed {
			b.WriteString(t.Access.String())
			b.WriteByte(' ')
		}
		switch t.Pointee {
		case PointeeCString:
			b.WriteString("cstring")
		case PointeeArray:
			b.WriteString("[]" + t.Elem.String())
		case PointeeBytes:
			b.WriteString("bytes")
		case PointeeStruct:
			b.WriteString("*" + t.Struct.Name)
		default:
			b.WriteString("*" + t.Elem.String())
		}
		return b.String()
	case KindHandle:
		if t.Access == AccessOwned {
			return "own<" + t.Handle + ">"
		}
		return t.Handle
	case KindStruct:
		if t.Struct != nil {
			return t.Struct.Name
		}
		return "struct"
	default:
		return t.Kind.String()
	}
}
