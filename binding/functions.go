package binding

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/native"
)

// call1 runs name and returns its first decoded value.
func call1[T any](s *Session, name string, args ...any) (T, error) {
	var zero T
	values, err := s.Call(context.Background(), name, args...)
	if err != nil {
		return zero, err
	}
	if len(values) == 0 {
		return zero, errors.New(errors.PhaseUnmarshal, errors.KindInternalFault).
			Path(name).
			Detail("call returned no value").
			Build()
	}
	v, ok := values[0].(T)
	if !ok {
		return zero, errors.New(errors.PhaseUnmarshal, errors.KindTypeMismatch).
			Path(name).
			Value(values[0]).
			Build()
	}
	return v, nil
}

func call0(s *Session, name string, args ...any) error {
	_, err := s.Call(context.Background(), name, args...)
	return err
}

func (s *Session) Version() (uint32, error)      { return call1[uint32](s, "get_version") }
func (s *Session) Add(a, b int32) (int32, error) { return call1[int32](s, "add", a, b) }

func (s *Session) Multiply(a, b int32) (int32, error) {
	return call1[int32](s, "multiply", a, b)
}

// Divide returns a/b. Division by zero is a domain_error.
func (s *Session) Divide(a, b float64) (float64, error) {
	return call1[float64](s, "divide", a, b)
}

func (s *Session) CanDivide(a, b float64) (bool, error) {
	return call1[bool](s, "can_divide", a, b)
}

// Factorial returns n!. n > 20 is reported as internal_fault.
func (s *Session) Factorial(n uint32) (uint64, error) {
	return call1[uint64](s, "factorial", n)
}

func (s *Session) IsPrime(n uint32) (bool, error) {
	return call1[bool](s, "is_prime", n)
}

func (s *Session) Greet(name string) (string, error) {
	return call1[string](s, "greet", name)
}

func (s *Session) ToUpper(str string) (string, error) {
	return call1[string](s, "to_uppercase", str)
}

func (s *Session) ReverseString(str string) (string, error) {
	return call1[string](s, "reverse_string", str)
}

// WordFrequency counts lower-cased words.
func (s *Session) WordFrequency(str string) (map[string]int, error) {
	data, err := call1[string](s, "word_frequency", str)
	if err != nil {
		return nil, err
	}
	freq := make(map[string]int)
	if err := json.Unmarshal([]byte(data), &freq); err != nil {
		return nil, errors.Wrap(errors.PhaseUnmarshal, errors.KindInvalidInput, err, "word_frequency result")
	}
	return freq, nil
}

func (s *Session) StringLength(str string) (int32, error) {
	return call1[int32](s, "string_length", str)
}

func (s *Session) WordCount(str string) (int32, error) {
	return call1[int32](s, "word_count", str)
}

func (s *Session) IsPalindrome(str string) (bool, error) {
	n, err := call1[int32](s, "is_palindrome", str)
	return n == 1, err
}

func (s *Session) ParseInt(str string) (int32, error) {
	return call1[int32](s, "parse_int", str)
}

// CopyString copies str through a destLen byte buffer, the way a C caller
// with a fixed array would.
func (s *Session) CopyString(str string, destLen uint32) (string, error) {
	dest := make([]byte, destLen)
	if err := call0(s, "copy_string", str, dest, destLen); err != nil {
		return "", err
	}
	if i := bytes.IndexByte(dest, 0); i >= 0 {
		dest = dest[:i]
	}
	return string(dest), nil
}

func (s *Session) SumArray(values []int32) (int64, error) {
	return call1[int64](s, "sum_array", values)
}

// MaxArray returns the largest value. An empty slice is a domain_error.
func (s *Session) MaxArray(values []int32) (int32, error) {
	return call1[int32](s, "max_array", values)
}

// SortArray sorts values in place.
func (s *Session) SortArray(values []int32) error {
	return call0(s, "sort_array", values)
}

func (s *Session) SortedCopy(values []int32) ([]int32, error) {
	return call1[[]int32](s, "sorted_copy", values)
}

func (s *Session) PointNew(x, y float64) (native.Point, error) {
	return call1[native.Point](s, "point_new", x, y)
}

func (s *Session) PointDistance(a, b native.Point) (float64, error) {
	return call1[float64](s, "point_distance", a, b)
}

func (s *Session) PointMidpoint(a, b native.Point) (native.Point, error) {
	return call1[native.Point](s, "point_midpoint", a, b)
}

// PointTranslate moves p by (dx, dy) through the pointer-taking symbol.
func (s *Session) PointTranslate(p *native.Point, dx, dy float64) error {
	return call0(s, "point_translate", p, dx, dy)
}
