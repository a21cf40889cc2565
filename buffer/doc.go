// Package buffer implements the owned buffer protocol: how strings, byte
// buffers and numeric arrays move across the boundary without leaks or
// double frees.
//
// Inputs are borrowed. ReadCString, ReadBytes and ReadInt32s copy what the
// callee needs and never retain the caller's pointer. A null pointer is
// reported as KindNullInput rather than dereferenced.
//
// Outputs are owned by the receiver. WriteCString and WriteInt32s allocate
// through an Arena, and ownership passes to the caller when the exported
// function returns. The caller hands the pointer back to the paired release
// symbol, which frees it through the same Arena:
//
//	ptr, err := buffer.WriteCString(mem, arena, "tsuR")
//	...
//	err = arena.Release(ptr) // free_string
//
// Releasing null is a no-op. Releasing an unknown pointer, or the same
// pointer twice, is a caller contract violation; the arena detects it,
// reports KindUnknownPointer, and leaves its state untouched.
package buffer
