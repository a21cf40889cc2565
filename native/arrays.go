package native

import (
	"slices"

	"github.com/wippyai/ffi-bridge/errors"
)

// Sum adds values in 64 bits, so no s32 input can overflow it.
func Sum(values []int32) int64 {
	var total int64
	for _, v := range values {
		total += int64(v)
	}
	return total
}

// Max returns the largest value. An empty slice is a domain error.
func Max(values []int32) (int32, error) {
	if len(values) == 0 {
		return 0, errors.Domain("max of empty array")
	}
	return slices.Max(values), nil
}

// Sort sorts values in place, ascending.
func Sort(values []int32) {
	slices.Sort(values)
}

// SortedCopy returns a sorted copy of values.
func SortedCopy(values []int32) []int32 {
	out := slices.Clone(values)
	slices.Sort(out)
	return out
}
