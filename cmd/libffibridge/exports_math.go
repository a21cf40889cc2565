package main

/*
#include "ffibridge_types.h"
*/
import "C"

import (
	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

//export get_version
func get_version() C.uint32_t {
	return C.uint32_t(ffibridge.ABIVersion)
}

//export last_error_code
func last_error_code() C.int32_t {
	return C.int32_t(lib.lastCode.Load())
}

//export add
func add(a, b C.int32_t) C.int32_t {
	return C.int32_t(native.Add(int32(a), int32(b)))
}

//export multiply
func multiply(a, b C.int32_t) C.int32_t {
	return C.int32_t(native.Multiply(int32(a), int32(b)))
}

//export divide
func divide(a, b C.double) C.ffi_result_f64 {
	v, ok, code := tagged("divide", func() (float64, signal.Code) {
		q, err := native.Divide(float64(a), float64(b))
		return q, signal.FromError(err)
	})
	return C.ffi_result_f64{success: C.bool(ok), value: C.double(v), code: code}
}

//export can_divide
func can_divide(a, b C.double) C.bool {
	return C.bool(native.CanDivide(float64(a), float64(b)))
}

//export factorial
func factorial(n C.uint32_t) C.ffi_result_u64 {
	v, ok, code := tagged("factorial", func() (uint64, signal.Code) {
		return native.Factorial(uint32(n)), signal.Ok
	})
	return C.ffi_result_u64{success: C.bool(ok), value: C.uint64_t(v), code: code}
}

//export is_prime
func is_prime(n C.uint32_t) C.bool {
	return C.bool(native.IsPrime(uint32(n)))
}
