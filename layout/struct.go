package layout

import (
	"math"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/errors"
)

var measurer = NewMeasurer()

// Struct is a fixed-layout struct bound to its computed offsets.
// Field values are carried as raw bits, the same encoding wazero uses on
// its value stack: integers zero- or sign-extended, floats as IEEE bits.
type Struct struct {
	Def   *abi.StructDef
	Shape Shape
}

// New validates def and computes its layout.
func New(def *abi.StructDef) (*Struct, error) {
	if err := abi.ValidateStruct(def, nil); err != nil {
		return nil, err
	}

	return &Struct{Def: def, Shape: measurer.Measure(def.WIT())}, nil
}

// MustNew is New for package-level struct definitions.
func MustNew(def *abi.StructDef) *Struct {
	s, err := New(def)
	if err != nil {
		panic(err)
	}
	return s
}

// Size returns the struct size in bytes.
func (s *Struct) Size() uint32 { return s.Shape.Size }

// Align returns the struct alignment.
func (s *Struct) Align() uint32 { return s.Shape.Align }

// Offset returns the byte offset of field i.
func (s *Struct) Offset(i int) uint32 { return s.Shape.Offsets[i] }

// Encode writes values, one per field, at ptr.
func (s *Struct) Encode(mem ffibridge.Memory, ptr uint32, values []uint64) error {
	if ptr == 0 {
		return errors.NullInput(errors.PhaseMarshal, s.Def.Name)
	}
	if len(values) != len(s.Def.Fields) {
		return errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Path(s.Def.Name).
			Detail("%d values for %d fields", len(values), len(s.Def.Fields)).
			Build()
	}
	if _, ok := abi.CheckedAdd(ptr, s.Shape.Size); !ok {
		return errors.OutOfBounds(errors.PhaseMarshal, []string{s.Def.Name}, ptr, s.Shape.Size)
	}
	// The whole struct must fit before any field is written.
	if _, err := mem.Read(ptr, s.Shape.Size); err != nil {
		return errors.New(errors.PhaseMarshal, errors.KindOutOfBounds).
			Path(s.Def.Name).
			Value(ptr).
			Cause(err).
			Build()
	}

	for i, f := range s.Def.Fields {
		if err := writeField(mem, ptr+s.Shape.Offsets[i], f.Kind, values[i]); err != nil {
			return errors.New(errors.PhaseMarshal, errors.KindOutOfBounds).
				Path(s.Def.Name, f.Name).
				Cause(err).
				Build()
		}
	}
	return nil
}

// Decode reads one value per field from ptr.
func (s *Struct) Decode(mem ffibridge.Memory, ptr uint32) ([]uint64, error) {
	if ptr == 0 {
		return nil, errors.NullInput(errors.PhaseUnmarshal, s.Def.Name)
	}
	if _, ok := abi.CheckedAdd(ptr, s.Shape.Size); !ok {
		return nil, errors.OutOfBounds(errors.PhaseUnmarshal, []string{s.Def.Name}, ptr, s.Shape.Size)
	}

	values := make([]uint64, len(s.Def.Fields))
	for i, f := range s.Def.Fields {
		v, err := readField(mem, ptr+s.Shape.Offsets[i], f.Kind)
		if err != nil {
			return nil, errors.New(errors.PhaseUnmarshal, errors.KindOutOfBounds).
				Path(s.Def.Name, f.Name).
				Cause(err).
				Build()
		}
		values[i] = v
	}
	return values, nil
}

func writeField(mem ffibridge.Memory, addr uint32, k abi.Kind, v uint64) error {
	switch k.Size() {
	case 1:
		if k == abi.KindBool && v != 0 {
			v = 1
		}
		return mem.WriteU8(addr, uint8(v))
	case 2:
		return mem.WriteU16(addr, uint16(v))
	case 4:
		return mem.WriteU32(addr, uint32(v))
	default:
		return mem.WriteU64(addr, v)
	}
}

func readField(mem ffibridge.Memory, addr uint32, k abi.Kind) (uint64, error) {
	switch k.Size() {
	case 1:
		b, err := mem.ReadU8(addr)
		if err != nil {
			return 0, err
		}
		switch {
		case k == abi.KindBool && b != 0:
			return 1, nil
		case k == abi.KindS8:
			return uint64(int64(int8(b))), nil
		}
		return uint64(b), nil
	case 2:
		h, err := mem.ReadU16(addr)
		if err != nil {
			return 0, err
		}
		if k == abi.KindS16 {
			return uint64(int64(int16(h))), nil
		}
		return uint64(h), nil
	case 4:
		w, err := mem.ReadU32(addr)
		if err != nil {
			return 0, err
		}
		if k == abi.KindS32 {
			return uint64(int64(int32(w))), nil
		}
		return uint64(w), nil
	default:
		return mem.ReadU64(addr)
	}
}

// F64 encodes a float64 field value.
func F64(v float64) uint64 { return math.Float64bits(v) }

// AsF64 decodes a float64 field value.
func AsF64(bits uint64) float64 { return math.Float64frombits(bits) }

// I32 encodes an int32 field value.
func I32(v int32) uint64 { return uint64(int64(v)) }

// AsI32 decodes an int32 field value.
func AsI32(bits uint64) int32 { return int32(bits) }

// Bool encodes a bool field value.
func Bool(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
