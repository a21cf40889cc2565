package main

/*
#include "ffibridge_types.h"
*/
import "C"

import (
	"encoding/json"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

// stringToString runs fn over a borrowed string and hands back an owned
// copy of the result, or NULL.
func stringToString(name string, input *C.char, fn func(string) (string, error)) *C.char {
	return sentinel(name, (*C.char)(nil), func() (*C.char, signal.Code) {
		s, err := goString(input, "input")
		if err != nil {
			return nil, signal.FromError(err)
		}
		out, err := fn(s)
		if err != nil {
			return nil, signal.FromError(err)
		}
		p, err := lib.allocs.cstring(out)
		if err != nil {
			return nil, signal.FromError(err)
		}
		return p, signal.Ok
	})
}

// stringToInt runs fn over a borrowed string, with -1 reserved for
// failure.
func stringToInt(name string, input *C.char, fn func(string) int) C.int32_t {
	return sentinel(name, C.int32_t(-1), func() (C.int32_t, signal.Code) {
		s, err := goString(input, "input")
		if err != nil {
			return -1, signal.FromError(err)
		}
		return C.int32_t(min(fn(s), 1<<31-1)), signal.Ok
	})
}

func pure(fn func(string) string) func(string) (string, error) {
	return func(s string) (string, error) { return fn(s), nil }
}

//export greet
func greet(input *C.char) *C.char {
	return stringToString("greet", input, pure(native.Greet))
}

//export to_uppercase
func to_uppercase(input *C.char) *C.char {
	return stringToString("to_uppercase", input, pure(native.ToUpper))
}

//export reverse_string
func reverse_string(input *C.char) *C.char {
	return stringToString("reverse_string", input, pure(native.Reverse))
}

//export word_frequency
func word_frequency(input *C.char) *C.char {
	return stringToString("word_frequency", input, func(s string) (string, error) {
		data, err := json.Marshal(native.WordFrequency(s))
		return string(data), err
	})
}

//export string_length
func string_length(input *C.char) C.int32_t {
	return stringToInt("string_length", input, native.Length)
}

//export word_count
func word_count(input *C.char) C.int32_t {
	return stringToInt("word_count", input, native.WordCount)
}

//export is_palindrome
func is_palindrome(input *C.char) C.int32_t {
	return stringToInt("is_palindrome", input, func(s string) int {
		if native.IsPalindrome(s) {
			return 1
		}
		return 0
	})
}

//export parse_int
func parse_int(input *C.char, out *C.int32_t) C.int32_t {
	return status("parse_int", func() signal.Code {
		if out == nil {
			return signal.NullInput
		}
		s, err := goString(input, "input")
		if err != nil {
			return signal.FromError(err)
		}
		v, err := native.ParseInt(s)
		if err != nil {
			return signal.FromError(err)
		}
		*out = C.int32_t(v)
		return signal.Ok
	})
}

//export copy_string
func copy_string(input *C.char, dest *C.uint8_t, destLen C.uint32_t) C.int32_t {
	return status("copy_string", func() signal.Code {
		if dest == nil {
			return signal.NullInput
		}
		s, err := goString(input, "input")
		if err != nil {
			return signal.FromError(err)
		}
		data, err := native.CopyString(s, uint32(destLen))
		if err != nil {
			return signal.FromError(err)
		}
		copy(unsafe.Slice((*byte)(unsafe.Pointer(dest)), int(destLen)), data)
		return signal.Ok
	})
}

//export free_string
func free_string(s *C.char) {
	if err := lib.allocs.release(unsafe.Pointer(s), 0, false); err != nil {
		lib.logger.Warn("free_string ignored", zap.Error(err))
	}
}
