package buffer

import (
	"encoding/binary"
	"fmt"
	"sync"

	ffibridge "github.com/wippyai/ffi-bridge"
)

// MaxPages is the largest page count whose byte size fits in a uint32.
const MaxPages = 65535

// Linear is a paged, growable address space backed by a Go byte slice.
// It stands in for a guest's linear memory when the surface is called
// in-process. Offset 0 is never handed out by an Arena, so it doubles as
// the null pointer.
type Linear struct {
	data     []byte
	maxPages uint32
	mu       sync.RWMutex
}

// NewLinear creates an address space of pages pages that may grow up to
// maxPages. A maxPages of zero means MaxPages.
func NewLinear(pages, maxPages uint32) *Linear {
	if maxPages == 0 || maxPages > MaxPages {
		maxPages = MaxPages
	}
	if pages > maxPages {
		pages = maxPages
	}
	return &Linear{
		data:     make([]byte, uint64(pages)*ffibridge.PageSize),
		maxPages: maxPages,
	}
}

// Size returns the current size in bytes.
func (m *Linear) Size() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint32(len(m.data))
}

// Pages returns the current size in pages.
func (m *Linear) Pages() uint32 {
	return uint32(uint64(m.Size()) / ffibridge.PageSize)
}

// Grow extends the memory by delta pages and returns the previous page count.
func (m *Linear) Grow(delta uint32) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := uint32(uint64(len(m.data)) / ffibridge.PageSize)
	if uint64(prev)+uint64(delta) > uint64(m.maxPages) {
		return prev, false
	}
	if delta > 0 {
		m.data = append(m.data, make([]byte, uint64(delta)*ffibridge.PageSize)...)
	}
	return prev, true
}

func (m *Linear) span(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		return nil, fmt.Errorf("memory access out of bounds: offset=%d, length=%d", offset, length)
	}
	return m.data[offset:end], nil
}

// Read returns a view of length bytes at offset. The view aliases memory.
func (m *Linear) Read(offset uint32, length uint32) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.span(offset, length)
}

// Write copies data to offset.
func (m *Linear) Write(offset uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dst, err := m.span(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Linear) ReadU8(offset uint32) (uint8, error) {
	b, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Linear) ReadU16(offset uint32) (uint16, error) {
	b, err := m.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Linear) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Linear) ReadU64(offset uint32) (uint64, error) {
	b, err := m.Read(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Linear) WriteU8(offset uint32, value uint8) error {
	return m.Write(offset, []byte{value})
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Linear) WriteU16(offset uint32, value uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], value)
	return m.Write(offset, b[:])
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Linear) WriteU32(offset uint32, value uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return m.Write(offset, b[:])
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Linear) WriteU64(offset uint32, value uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], value)
	return m.Write(offset, b[:])
}
