package abi

import "math"

// MaxArrayLen bounds the element count of an int32 array crossing the
// boundary, so its byte length always fits in a u32.
const MaxArrayLen = math.MaxUint32 / 4

// AlignUp rounds offset up to a multiple of align, a power of two.
// An align of 0 leaves offset unchanged.
func AlignUp(offset, align uint32) uint32 {
	if align <= 1 {
		return offset
	}
	mask := align - 1
	return (offset + mask) &^ mask
}

// CheckedAdd returns a+b, or false if the sum leaves the 32-bit address
// space.
func CheckedAdd(a, b uint32) (uint32, bool) {
	sum := a + b
	return sum, sum >= a
}

// CheckedMul returns a*b, or false on overflow.
func CheckedMul(a, b uint32) (uint32, bool) {
	p := uint64(a) * uint64(b)
	return uint32(p), p <= math.MaxUint32
}
