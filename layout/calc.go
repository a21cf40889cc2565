package layout

import (
	"sync"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ffi-bridge/abi"
)

// Shape is where a type sits in memory under C struct rules. Offsets
// holds one entry per record field, in declaration order.
type Shape struct {
	Size    uint32
	Align   uint32
	Offsets []uint32
}

// Measurer computes shapes for WIT types, remembering records it has
// already seen. It is safe for concurrent use.
type Measurer struct {
	mu   sync.Mutex
	seen map[*wit.TypeDef]Shape
}

func NewMeasurer() *Measurer {
	return &Measurer{seen: make(map[*wit.TypeDef]Shape)}
}

// Measure returns the shape of t. Types with no C layout measure as
// zero-sized with alignment 1.
func (m *Measurer) Measure(t wit.Type) Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.measure(t)
}

func (m *Measurer) measure(t wit.Type) Shape {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		n := scalarSize(t)
		return Shape{Size: n, Align: max(n, 1)}
	}
	if s, ok := m.seen[td]; ok {
		return s
	}

	var s Shape
	switch k := td.Kind.(type) {
	case *wit.Record:
		s = m.record(k)
	case wit.Type:
		s = m.measure(k)
	default:
		s = Shape{Align: 1}
	}
	m.seen[td] = s
	return s
}

// record lays fields out in order, padding each to its own alignment and
// the whole to the widest field.
func (m *Measurer) record(r *wit.Record) Shape {
	s := Shape{Align: 1, Offsets: make([]uint32, len(r.Fields))}
	var end uint32
	for i, f := range r.Fields {
		fs := m.measure(f.Type)
		end = abi.AlignUp(end, fs.Align)
		s.Offsets[i] = end
		end += fs.Size
		s.Align = max(s.Align, fs.Align)
	}
	s.Size = abi.AlignUp(end, s.Align)
	return s
}

// scalarSize is the width of a primitive; size and alignment coincide.
func scalarSize(t wit.Type) uint32 {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8:
		return 1
	case wit.U16, wit.S16:
		return 2
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return 4
	case wit.U64, wit.S64, wit.F64:
		return 8
	}
	return 0
}
