package wasmhost

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	ffibridge "github.com/wippyai/ffi-bridge"
)

// Memory adapts a guest's wazero linear memory to the address space the
// surface reads arguments from and the arena grows into.
type Memory struct {
	Mem api.Memory
}

var _ ffibridge.GrowableMemory = (*Memory)(nil)

// WrapMemory returns nil for a guest without memory.
func WrapMemory(mem api.Memory) *Memory {
	if mem == nil {
		return nil
	}
	return &Memory{Mem: mem}
}

func (m *Memory) Size() uint32 { return m.Mem.Size() }

// Grow extends guest memory by delta pages. It fails when the guest's
// declared maximum would be exceeded.
func (m *Memory) Grow(delta uint32) (uint32, bool) {
	return m.Mem.Grow(delta)
}

func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("guest memory read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return fmt.Errorf("guest memory write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	return v, readErr(ok, offset)
}

func (m *Memory) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.Mem.ReadUint16Le(offset)
	return v, readErr(ok, offset)
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	return v, readErr(ok, offset)
}

func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	return v, readErr(ok, offset)
}

func (m *Memory) WriteU8(offset uint32, value uint8) error {
	return writeErr(m.Mem.WriteByte(offset, value), offset)
}

func (m *Memory) WriteU16(offset uint32, value uint16) error {
	return writeErr(m.Mem.WriteUint16Le(offset, value), offset)
}

func (m *Memory) WriteU32(offset uint32, value uint32) error {
	return writeErr(m.Mem.WriteUint32Le(offset, value), offset)
}

func (m *Memory) WriteU64(offset uint32, value uint64) error {
	return writeErr(m.Mem.WriteUint64Le(offset, value), offset)
}

func readErr(ok bool, offset uint32) error {
	if ok {
		return nil
	}
	return fmt.Errorf("guest memory read out of bounds: offset=%d", offset)
}

func writeErr(ok bool, offset uint32) error {
	if ok {
		return nil
	}
	return fmt.Errorf("guest memory write out of bounds: offset=%d", offset)
}
