package surface

import (
	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/layout"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

func pointFunctions() []*Function {
	point := abi.StructValue(PointDef)
	twoPoints := []abi.Param{param("a", point), param("b", point)}

	return []*Function{
		{
			Name: "point_new",
			Doc:  "Returns the point (x, y).",
			Signature: abi.Signature{
				Params: []abi.Param{param("x", abi.F64), param("y", abi.F64)},
				Result: abi.Returns(point),
			},
			Convention: signal.Infallible,
			Failures:   RetPtrFailures,
			Impl: func(c *Call) signal.Code {
				return c.ReturnPoint(native.Point{X: c.F64(0), Y: c.F64(1)})
			},
		},
		{
			Name:       "point_distance",
			Doc:        "Returns the Euclidean distance between a and b.",
			Signature:  abi.Signature{Params: twoPoints, Result: abi.Returns(abi.F64)},
			Convention: signal.Infallible,
			Impl: func(c *Call) signal.Code {
				c.ReturnF64(native.Distance(c.Point(0), c.Point(2)))
				return signal.Ok
			},
		},
		{
			Name:       "point_midpoint",
			Doc:        "Returns the point halfway between a and b.",
			Signature:  abi.Signature{Params: twoPoints, Result: abi.Returns(point)},
			Convention: signal.Infallible,
			Failures:   RetPtrFailures,
			Impl: func(c *Call) signal.Code {
				return c.ReturnPoint(native.Midpoint(c.Point(0), c.Point(2)))
			},
		},
		{
			Name: "point_translate",
			Doc:  "Moves *p by (dx, dy) in place.",
			Signature: abi.Signature{
				Params: []abi.Param{
					param("p", abi.StructPtr(PointDef, abi.AccessMutable)),
					param("dx", abi.F64),
					param("dy", abi.F64),
				},
				Result: status(),
			},
			Convention: signal.Status,
			Failures:   readFailures,
			Impl: func(c *Call) signal.Code {
				ptr := c.Ptr(0)
				fields, err := pointLayout.Decode(c.Env.Memory, ptr)
				if err != nil {
					return c.Fail(err)
				}
				p := native.Point{X: layout.AsF64(fields[0]), Y: layout.AsF64(fields[1])}
				p.Translate(c.F64(1), c.F64(2))
				if err := pointLayout.Encode(c.Env.Memory, ptr, pointValues(p)); err != nil {
					return c.Fail(err)
				}
				return c.ReturnStatus()
			},
		},
	}
}
