package native

import (
	"fmt"
	"math"

	"github.com/wippyai/ffi-bridge/errors"
)

// MaxFactorial is the largest n whose factorial fits in a u64.
const MaxFactorial = 20

// Add returns a+b clamped to the int32 range.
func Add(a, b int32) int32 {
	return clamp32(int64(a) + int64(b))
}

// Multiply returns a*b clamped to the int32 range.
func Multiply(a, b int32) int32 {
	return clamp32(int64(a) * int64(b))
}

func clamp32(v int64) int32 {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}

// Divide returns a/b. A zero divisor is a domain error.
func Divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errors.Domain("division by zero")
	}
	return a / b, nil
}

// CanDivide reports whether Divide(a, b) would succeed.
func CanDivide(_, b float64) bool {
	return b != 0
}

// Factorial returns n!. It panics when the result does not fit in a u64;
// callers reach it only through a containment boundary.
func Factorial(n uint32) uint64 {
	if n > MaxFactorial {
		panic(fmt.Sprintf("factorial(%d) overflows u64", n))
	}
	result := uint64(1)
	for i := uint64(2); i <= uint64(n); i++ {
		result *= i
	}
	return result
}

// IsPrime reports whether n is prime.
func IsPrime(n uint32) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for i := uint64(3); i*i <= uint64(n); i += 2 {
		if uint64(n)%i == 0 {
			return false
		}
	}
	return true
}
