package main

/*
#include "ffibridge_types.h"
*/
import "C"

import (
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

//export point_new
func point_new(x, y C.double) C.ffi_point {
	return C.ffi_point{x: x, y: y}
}

//export point_distance
func point_distance(a, b C.ffi_point) C.double {
	return C.double(native.Distance(goPoint(a), goPoint(b)))
}

//export point_midpoint
func point_midpoint(a, b C.ffi_point) C.ffi_point {
	return cPoint(native.Midpoint(goPoint(a), goPoint(b)))
}

//export point_translate
func point_translate(p *C.ffi_point, dx, dy C.double) C.int32_t {
	return status("point_translate", func() signal.Code {
		if p == nil {
			return signal.NullInput
		}
		moved := goPoint(*p)
		moved.Translate(float64(dx), float64(dy))
		*p = cPoint(moved)
		return signal.Ok
	})
}

func goPoint(p C.ffi_point) native.Point {
	return native.Point{X: float64(p.x), Y: float64(p.y)}
}

func cPoint(p native.Point) C.ffi_point {
	return C.ffi_point{x: C.double(p.X), y: C.double(p.Y)}
}
