package ffibridge

// ABIVersion is returned by get_version. Any change to a published
// symbol's signature or convention requires a bump.
const ABIVersion uint32 = 1

// PageSize is the growth unit of an address space, matching WASM pages.
const PageSize = 65536

// Memory represents the address space a boundary call reads arguments
// from and writes results into.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of the address space in bytes.
type MemorySizer interface {
	Size() uint32
}

// Grower extends an address space by whole pages. It returns the
// previous size in pages.
type Grower interface {
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
}

// GrowableMemory is an address space the owned buffer allocator can carve
// new regions out of.
type GrowableMemory interface {
	Memory
	MemorySizer
	Grower
}

// Allocator allocates owned buffers inside an address space
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
