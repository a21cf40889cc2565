package surface

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

// stringToString builds a function taking a borrowed string and returning
// an owned one.
func stringToString(name, doc string, fn func(string) (string, error)) *Function {
	return &Function{
		Name:       name,
		Doc:        doc,
		Signature:  abi.Signature{Params: []abi.Param{param("input", abi.CString)}, Result: abi.Returns(abi.OwnedCString)},
		Convention: signal.Sentinel,
		Failures:   stringFailures,
		Impl: func(c *Call) signal.Code {
			s, err := c.CString(0)
			if err != nil {
				return c.Fail(err)
			}
			out, err := fn(s)
			if err != nil {
				return c.Fail(err)
			}
			return c.ReturnString(out)
		},
	}
}

// stringToInt builds a function taking a borrowed string and returning a
// non-negative s32, with -1 reserved for failure.
func stringToInt(name, doc string, fn func(string) int32) *Function {
	return &Function{
		Name:       name,
		Doc:        doc,
		Signature:  abi.Signature{Params: []abi.Param{param("input", abi.CString)}, Result: abi.Returns(abi.S32)},
		Convention: signal.Sentinel,
		Failures:   readFailures,
		Impl: func(c *Call) signal.Code {
			s, err := c.CString(0)
			if err != nil {
				return c.Fail(err)
			}
			c.ReturnI32(fn(s))
			return signal.Ok
		},
	}
}

func pure(fn func(string) string) func(string) (string, error) {
	return func(s string) (string, error) { return fn(s), nil }
}

func wordFrequencyJSON(s string) (string, error) {
	data, err := json.Marshal(native.WordFrequency(s))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func clampLen(n int) int32 {
	if n > 1<<31-1 {
		return 1<<31 - 1
	}
	return int32(n)
}

func stringFunctions() []*Function {
	return []*Function{
		stringToString("greet", "Returns a greeting for name. Release with free_string.", pure(native.Greet)),
		stringToString("to_uppercase", "Upper-cases the input. Release with free_string.", pure(native.ToUpper)),
		stringToString("reverse_string", "Reverses the input by code point. Release with free_string.", pure(native.Reverse)),
		stringToString("word_frequency", "Returns a JSON object mapping lower-cased words to counts. Release with free_string.", wordFrequencyJSON),

		stringToInt("string_length", "Returns the number of code points.", func(s string) int32 {
			return clampLen(native.Length(s))
		}),
		stringToInt("word_count", "Returns the number of whitespace-separated words.", func(s string) int32 {
			return clampLen(native.WordCount(s))
		}),
		stringToInt("is_palindrome", "Returns 1 if the letters and digits read the same backwards, else 0.", func(s string) int32 {
			if native.IsPalindrome(s) {
				return 1
			}
			return 0
		}),

		{
			Name: "parse_int",
			Doc:  "Parses a base-10 s32 into *out. *out is untouched on failure.",
			Signature: abi.Signature{
				Params: []abi.Param{param("input", abi.CString), param("out", abi.Out(abi.KindS32))},
				Result: status(),
			},
			Convention: signal.Status,
			Failures:   readFailures,
			Impl: func(c *Call) signal.Code {
				out := c.Ptr(1)
				if out == 0 {
					return signal.NullInput
				}
				s, err := c.CString(0)
				if err != nil {
					return c.Fail(err)
				}
				v, err := native.ParseInt(s)
				if err != nil {
					return c.Fail(err)
				}
				if err := c.WriteU32(out, uint32(v)); err != nil {
					return c.Fail(err)
				}
				return c.ReturnStatus()
			},
		},
		{
			Name: "copy_string",
			Doc:  "Copies input and a NUL terminator into dest. Fails with buffer_too_small when dest_len < strlen(input)+1.",
			Signature: abi.Signature{
				Params: []abi.Param{
					param("input", abi.CString),
					param("dest", OutBytes),
					param("dest_len", abi.U32),
				},
				Result: status(),
			},
			Convention: signal.Status,
			Failures:   []signal.Code{signal.NullInput, signal.InvalidInput, signal.BufferTooSmall},
			Impl: func(c *Call) signal.Code {
				dest := c.Ptr(1)
				if dest == 0 {
					return signal.NullInput
				}
				s, err := c.CString(0)
				if err != nil {
					return c.Fail(err)
				}
				data, err := native.CopyString(s, c.U32(2))
				if err != nil {
					return c.Fail(err)
				}
				if err := c.Write(dest, data); err != nil {
					return c.Fail(err)
				}
				return c.ReturnStatus()
			},
		},
		{
			Name:       "free_string",
			Doc:        "Releases a string returned by this library. Null is a no-op.",
			Signature:  abi.Signature{Params: []abi.Param{param("s", abi.OwnedCString)}},
			Convention: signal.Release,
			Impl: func(c *Call) signal.Code {
				if err := c.Env.Arena.Release(c.Ptr(0)); err != nil {
					Logger().Warn("free_string ignored", zap.Error(err))
				}
				return signal.Ok
			},
		},
	}
}
