package surface

import (
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/layout"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

func arrayParams(access abi.Access) []abi.Param {
	return []abi.Param{
		param("values", abi.Array(abi.KindS32, access)),
		param("len", abi.U32),
	}
}

func arrayFunctions() []*Function {
	return []*Function{
		{
			Name:       "sum_array",
			Doc:        "Sums len s32 values into an s64.",
			Signature:  abi.Signature{Params: arrayParams(abi.AccessBorrowed), Result: tagged(abi.KindS64)},
			Convention: signal.Tagged,
			Failures:   readFailures,
			Impl: func(c *Call) signal.Code {
				values, err := c.Int32s(0)
				if err != nil {
					return c.Fail(err)
				}
				return c.ReturnTagged(uint64(native.Sum(values)))
			},
		},
		{
			Name:       "max_array",
			Doc:        "Returns the largest of len s32 values. An empty array fails with domain_error.",
			Signature:  abi.Signature{Params: arrayParams(abi.AccessBorrowed), Result: tagged(abi.KindS32)},
			Convention: signal.Tagged,
			Failures:   []signal.Code{signal.NullInput, signal.InvalidInput, signal.DomainError},
			Impl: func(c *Call) signal.Code {
				values, err := c.Int32s(0)
				if err != nil {
					return c.Fail(err)
				}
				m, err := native.Max(values)
				if err != nil {
					return c.Fail(err)
				}
				return c.ReturnTagged(layout.I32(m))
			},
		},
		{
			Name:       "sort_array",
			Doc:        "Sorts len s32 values in place, ascending.",
			Signature:  abi.Signature{Params: arrayParams(abi.AccessMutable), Result: status()},
			Convention: signal.Status,
			Failures:   readFailures,
			Impl: func(c *Call) signal.Code {
				values, err := c.Int32s(0)
				if err != nil {
					return c.Fail(err)
				}
				native.Sort(values)
				if err := buffer.WriteInt32sAt(c.Env.Memory, c.Ptr(0), values); err != nil {
					return c.Fail(wrapWrite(c.Ptr(0), err))
				}
				return c.ReturnStatus()
			},
		},
		{
			Name:       "sorted_copy",
			Doc:        "Returns a sorted copy of len s32 values. Release with free_buffer(ptr, len*4).",
			Signature:  abi.Signature{Params: arrayParams(abi.AccessBorrowed), Result: abi.Returns(OwnedInt32s)},
			Convention: signal.Sentinel,
			Failures:   stringFailures,
			Impl: func(c *Call) signal.Code {
				values, err := c.Int32s(0)
				if err != nil {
					return c.Fail(err)
				}
				ptr, err := buffer.WriteInt32s(c.Env.Memory, c.Env.Arena, native.SortedCopy(values))
				if err != nil {
					return c.Fail(err)
				}
				c.ReturnU32(ptr)
				return signal.Ok
			},
		},
		{
			Name: "free_buffer",
			Doc:  "Releases a buffer of len bytes returned by this library. Null is a no-op.",
			Signature: abi.Signature{Params: []abi.Param{
				param("buf", abi.OwnedBytes),
				param("len", abi.U32),
			}},
			Convention: signal.Release,
			Impl: func(c *Call) signal.Code {
				if err := c.Env.Arena.ReleaseSized(c.Ptr(0), c.U32(1)); err != nil {
					Logger().Warn("free_buffer ignored", zap.Error(err))
				}
				return signal.Ok
			},
		},
	}
}
