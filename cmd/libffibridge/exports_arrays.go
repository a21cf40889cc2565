package main

/*
#include "ffibridge_types.h"
*/
import "C"

import (
	"math"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

//export sum_array
func sum_array(values *C.int32_t, n C.uint32_t) C.ffi_result_s64 {
	v, ok, code := tagged("sum_array", func() (int64, signal.Code) {
		in, err := int32s(values, n)
		if err != nil {
			return 0, signal.FromError(err)
		}
		return native.Sum(in), signal.Ok
	})
	return C.ffi_result_s64{success: C.bool(ok), value: C.int64_t(v), code: code}
}

//export max_array
func max_array(values *C.int32_t, n C.uint32_t) C.ffi_result_s32 {
	v, ok, code := tagged("max_array", func() (int32, signal.Code) {
		in, err := int32s(values, n)
		if err != nil {
			return 0, signal.FromError(err)
		}
		m, err := native.Max(in)
		return m, signal.FromError(err)
	})
	return C.ffi_result_s32{success: C.bool(ok), value: C.int32_t(v), code: code}
}

//export sort_array
func sort_array(values *C.int32_t, n C.uint32_t) C.int32_t {
	return status("sort_array", func() signal.Code {
		in, err := int32s(values, n)
		if err != nil {
			return signal.FromError(err)
		}
		native.Sort(in)
		return signal.Ok
	})
}

//export sorted_copy
func sorted_copy(values *C.int32_t, n C.uint32_t) *C.int32_t {
	return sentinel("sorted_copy", (*C.int32_t)(nil), func() (*C.int32_t, signal.Code) {
		in, err := int32s(values, n)
		if err != nil {
			return nil, signal.FromError(err)
		}
		sorted := native.SortedCopy(in)
		if uint64(len(sorted))*4 > math.MaxUint32 {
			return nil, signal.AllocationFailed
		}
		p, err := lib.allocs.alloc(uint32(len(sorted)) * 4)
		if err != nil {
			return nil, signal.FromError(err)
		}
		copy(unsafe.Slice((*int32)(p), len(sorted)), sorted)
		return (*C.int32_t)(p), signal.Ok
	})
}

//export free_buffer
func free_buffer(buf *C.uint8_t, size C.uint32_t) {
	if err := lib.allocs.release(unsafe.Pointer(buf), uint32(size), true); err != nil {
		lib.logger.Warn("free_buffer ignored", zap.Error(err))
	}
}
