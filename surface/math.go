package surface

import (
	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/layout"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

func metaFunctions() []*Function {
	return []*Function{
		{
			Name:       "get_version",
			Doc:        "Returns the ABI version of the library.",
			Signature:  abi.Signature{Result: abi.Returns(abi.U32)},
			Convention: signal.Infallible,
			Impl: func(c *Call) signal.Code {
				c.ReturnU32(ffibridge.ABIVersion)
				return signal.Ok
			},
		},
		{
			Name:       "last_error_code",
			Doc:        "Returns the code of the most recent failed call in this address space.",
			Signature:  abi.Signature{Result: abi.Returns(abi.S32)},
			Convention: signal.Infallible,
			Impl: func(c *Call) signal.Code {
				c.ReturnI32(int32(c.Env.LastCode()))
				return signal.Ok
			},
		},
	}
}

func mathFunctions() []*Function {
	binaryS32 := abi.Signature{
		Params: []abi.Param{param("a", abi.S32), param("b", abi.S32)},
		Result: abi.Returns(abi.S32),
	}
	binaryF64 := []abi.Param{param("a", abi.F64), param("b", abi.F64)}

	return []*Function{
		{
			Name:       "add",
			Doc:        "Adds two integers, saturating at the int32 range.",
			Signature:  binaryS32,
			Convention: signal.Infallible,
			Impl: func(c *Call) signal.Code {
				c.ReturnI32(native.Add(c.I32(0), c.I32(1)))
				return signal.Ok
			},
		},
		{
			Name:       "multiply",
			Doc:        "Multiplies two integers, saturating at the int32 range.",
			Signature:  binaryS32,
			Convention: signal.Infallible,
			Impl: func(c *Call) signal.Code {
				c.ReturnI32(native.Multiply(c.I32(0), c.I32(1)))
				return signal.Ok
			},
		},
		{
			Name:       "divide",
			Doc:        "Divides a by b. A zero divisor fails with domain_error.",
			Signature:  abi.Signature{Params: binaryF64, Result: tagged(abi.KindF64)},
			Convention: signal.Tagged,
			Failures:   []signal.Code{signal.DomainError},
			Impl: func(c *Call) signal.Code {
				v, err := native.Divide(c.F64(0), c.F64(1))
				if err != nil {
					return c.Fail(err)
				}
				return c.ReturnTagged(layout.F64(v))
			},
		},
		{
			Name:       "can_divide",
			Doc:        "Reports whether divide(a, b) would succeed.",
			Signature:  abi.Signature{Params: binaryF64, Result: abi.Returns(abi.Bool)},
			Convention: signal.Infallible,
			Impl: func(c *Call) signal.Code {
				c.ReturnBool(native.CanDivide(c.F64(0), c.F64(1)))
				return signal.Ok
			},
		},
		{
			Name:       "factorial",
			Doc:        "Returns n!. n > 20 overflows u64 and fails with internal_fault.",
			Signature:  abi.Signature{Params: []abi.Param{param("n", abi.U32)}, Result: tagged(abi.KindU64)},
			Convention: signal.Tagged,
			Failures:   []signal.Code{signal.InternalFault},
			Impl: func(c *Call) signal.Code {
				return c.ReturnTagged(native.Factorial(c.U32(0)))
			},
		},
		{
			Name:       "is_prime",
			Doc:        "Reports whether n is prime.",
			Signature:  abi.Signature{Params: []abi.Param{param("n", abi.U32)}, Result: abi.Returns(abi.Bool)},
			Convention: signal.Infallible,
			Impl: func(c *Call) signal.Code {
				c.ReturnBool(native.IsPrime(c.U32(0)))
				return signal.Ok
			},
		},
	}
}
