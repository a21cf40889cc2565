package binding

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
	"github.com/wippyai/ffi-bridge/surface"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// requireNoLeaks asserts every argument and result buffer was released.
func requireNoLeaks(t *testing.T, s *Session) {
	t.Helper()
	assert.Zero(t, s.Env().Arena.Live(), "live allocations")
	assert.Zero(t, s.Env().Arena.LiveBytes(), "live bytes")
}

func requireCode(t *testing.T, want signal.Code, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, signal.CodeOf(err), "error: %v", err)
}

func TestNewSession_RejectsArenaStepOverLimit(t *testing.T) {
	_, err := NewSession(Options{MaxPages: 2, ArenaPages: 4})
	require.Error(t, err)
	kind, _ := errors.KindOf(err)
	assert.Equal(t, errors.KindInvalidInput, kind)
}

func TestSession_Math(t *testing.T) {
	s := newSession(t)

	v, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, ffibridge.ABIVersion, v)

	sum, err := s.Add(5, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(8), sum)

	product, err := s.Multiply(6, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(42), product)

	sat, err := s.Add(math.MaxInt32, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), sat)

	q, err := s.Divide(10, 4)
	require.NoError(t, err)
	assert.Equal(t, 2.5, q)

	_, err = s.Divide(10, 0)
	requireCode(t, signal.DomainError, err)
	assert.Equal(t, signal.DomainError, s.LastErrorCode())

	ok, err := s.CanDivide(1, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	f, err := s.Factorial(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), f)

	f, err = s.Factorial(20)
	require.NoError(t, err)
	assert.Equal(t, uint64(2432902008176640000), f)

	_, err = s.Factorial(21)
	requireCode(t, signal.InternalFault, err)
	assert.Equal(t, uint64(1), s.Env().Boundary().Faults())

	prime, err := s.IsPrime(17)
	require.NoError(t, err)
	assert.True(t, prime)
	prime, err = s.IsPrime(18)
	require.NoError(t, err)
	assert.False(t, prime)

	requireNoLeaks(t, s)
}

func TestSession_Strings(t *testing.T) {
	s := newSession(t)

	out, err := s.ReverseString("Rust")
	require.NoError(t, err)
	assert.Equal(t, "tsuR", out)

	back, err := s.ReverseString(out)
	require.NoError(t, err)
	assert.Equal(t, "Rust", back)

	greeting, err := s.Greet("Ada")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada! Welcome from Go.", greeting)

	upper, err := s.ToUpper("hello")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", upper)
	again, err := s.ToUpper(upper)
	require.NoError(t, err)
	assert.Equal(t, upper, again)

	n, err := s.StringLength("héllo")
	require.NoError(t, err)
	assert.Equal(t, int32(5), n)

	words, err := s.WordCount("one two  three")
	require.NoError(t, err)
	assert.Equal(t, int32(3), words)

	pal, err := s.IsPalindrome("A man, a plan, a canal: Panama")
	require.NoError(t, err)
	assert.True(t, pal)

	freq, err := s.WordFrequency("the cat the")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"the": 2, "cat": 1}, freq)

	requireNoLeaks(t, s)
}

func TestSession_ParseInt(t *testing.T) {
	s := newSession(t)

	v, err := s.ParseInt("-42")
	require.NoError(t, err)
	assert.Equal(t, int32(-42), v)

	_, err = s.ParseInt("forty-two")
	requireCode(t, signal.InvalidInput, err)

	_, err = s.ParseInt("99999999999")
	requireCode(t, signal.InvalidInput, err)

	requireNoLeaks(t, s)
}

func TestSession_CopyString(t *testing.T) {
	s := newSession(t)

	out, err := s.CopyString("hello", 6)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = s.CopyString("hello", 5)
	requireCode(t, signal.BufferTooSmall, err)

	requireNoLeaks(t, s)
}

func TestSession_Arrays(t *testing.T) {
	s := newSession(t)

	sum, err := s.SumArray([]int32{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum)

	sum, err = s.SumArray(nil)
	require.NoError(t, err)
	assert.Zero(t, sum)

	big, err := s.SumArray([]int32{math.MaxInt32, math.MaxInt32})
	require.NoError(t, err)
	assert.Equal(t, int64(2*math.MaxInt32), big)

	m, err := s.MaxArray([]int32{-5, 7, 3})
	require.NoError(t, err)
	assert.Equal(t, int32(7), m)

	_, err = s.MaxArray([]int32{})
	requireCode(t, signal.DomainError, err)

	values := []int32{3, 1, 2}
	require.NoError(t, s.SortArray(values))
	assert.Equal(t, []int32{1, 2, 3}, values)

	input := []int32{9, -1, 4}
	sorted, err := s.SortedCopy(input)
	require.NoError(t, err)
	assert.Equal(t, []int32{-1, 4, 9}, sorted)
	assert.Equal(t, []int32{9, -1, 4}, input)

	empty, err := s.SortedCopy([]int32{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	requireNoLeaks(t, s)
}

func TestSession_Points(t *testing.T) {
	s := newSession(t)

	p, err := s.PointNew(1, 2)
	require.NoError(t, err)
	assert.Equal(t, native.Point{X: 1, Y: 2}, p)

	d, err := s.PointDistance(native.Point{}, native.Point{X: 3, Y: 4})
	require.NoError(t, err)
	assert.Equal(t, 5.0, d)

	mid, err := s.PointMidpoint(native.Point{}, native.Point{X: 4, Y: 6})
	require.NoError(t, err)
	assert.Equal(t, native.Point{X: 2, Y: 3}, mid)

	require.NoError(t, s.PointTranslate(&p, 3, 4))
	assert.Equal(t, native.Point{X: 4, Y: 6}, p)

	requireNoLeaks(t, s)
}

func TestSession_Counter(t *testing.T) {
	s := newSession(t)

	c, err := s.NewCounter(10)
	require.NoError(t, err)
	assert.NotZero(t, c.Handle())

	require.NoError(t, c.Increment())
	require.NoError(t, c.IncrementBy(5))
	require.NoError(t, c.Decrement())
	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, int32(15), v)

	require.NoError(t, c.Reset())
	v, err = c.Value()
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Zero(t, s.Env().Objects.Len())

	_, err = c.Value()
	requireCode(t, signal.InvalidInput, err)
	requireNoLeaks(t, s)
}

func TestSession_Calculator(t *testing.T) {
	s := newSession(t)

	c, err := s.NewCalculator()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Add(10))
	require.NoError(t, c.Multiply(3))
	requireCode(t, signal.DomainError, c.Divide(0))

	v, err := c.Result()
	require.NoError(t, err)
	assert.Equal(t, 30.0, v)

	require.NoError(t, c.Subtract(5))
	require.NoError(t, c.Divide(5))
	v, err = c.Result()
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	require.NoError(t, c.Reset())
	v, err = c.Result()
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestSession_Person(t *testing.T) {
	s := newSession(t)

	p, err := s.NewPerson("Ada", 36)
	require.NoError(t, err)
	defer p.Close()

	greeting, err := p.Greet()
	require.NoError(t, err)
	assert.Equal(t, "Hello, my name is Ada and I am 36 years old.", greeting)

	adult, err := p.IsAdult()
	require.NoError(t, err)
	assert.True(t, adult)

	kid, err := s.NewPerson("Kid", 17)
	require.NoError(t, err)
	defer kid.Close()

	adult, err = kid.IsAdult()
	require.NoError(t, err)
	assert.False(t, adult)

	require.NoError(t, kid.Birthday())
	age, err := kid.Age()
	require.NoError(t, err)
	assert.Equal(t, int32(18), age)
	adult, err = kid.IsAdult()
	require.NoError(t, err)
	assert.True(t, adult)

	_, err = s.NewPerson("Nobody", -1)
	requireCode(t, signal.InvalidInput, err)
	assert.Equal(t, 2, s.Env().Objects.Len())
}

func TestSession_Close(t *testing.T) {
	s, err := NewSession(Options{})
	require.NoError(t, err)

	c, err := s.NewCounter(1)
	require.NoError(t, err)
	_, err = s.NewCalculator()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Env().Objects.Len())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Zero(t, s.Env().Objects.Len())

	_, err = s.Add(1, 2)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, c.Close())
}

func TestSession_CallErrors(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()

	_, err := s.Call(ctx, "no_such_symbol")
	kind, _ := errors.KindOf(err)
	assert.Equal(t, errors.KindNotFound, kind)

	_, err = s.Call(ctx, "add", "five", 3)
	kind, _ = errors.KindOf(err)
	assert.Equal(t, errors.KindTypeMismatch, kind)

	_, err = s.Call(ctx, "add", 5)
	kind, _ = errors.KindOf(err)
	assert.Equal(t, errors.KindInvalidInput, kind)

	_, err = s.Call(ctx, "add", 1, 2, 3)
	kind, _ = errors.KindOf(err)
	assert.Equal(t, errors.KindInvalidInput, kind)

	requireNoLeaks(t, s)
}

func TestSession_CallRaw_NullInput(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()

	stack, err := s.CallRaw(ctx, "reverse_string", 0)
	requireCode(t, signal.NullInput, err)
	assert.Zero(t, stack[0])
	assert.Equal(t, signal.NullInput, s.LastErrorCode())

	_, err = s.CallRaw(ctx, "divide", 0, 0, 0)
	requireCode(t, signal.NullInput, err)

	// Struct results by value report a bad retptr through their status.
	_, err = s.CallRaw(ctx, "point_new", 0, 0, 0)
	requireCode(t, signal.NullInput, err)
	_, err = s.CallRaw(ctx, "point_midpoint", 0, 0, 0, 0, 0xfffffff0)
	requireCode(t, signal.InvalidInput, err)
	assert.Equal(t, signal.InvalidInput, s.LastErrorCode())

	// Releasing null is a no-op.
	_, err = s.CallRaw(ctx, "free_string", 0)
	require.NoError(t, err)
	_, err = s.CallRaw(ctx, "free_buffer", 0, 0)
	require.NoError(t, err)
}

func TestSession_Concurrent(t *testing.T) {
	s := newSession(t)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.ReverseString("concurrent")
			if err != nil {
				errs <- err
				return
			}
			if out != "tnerrucnoc" {
				errs <- errors.InvalidInput(errors.PhaseCall, out)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	requireNoLeaks(t, s)
}

func TestParseArgs(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   string
		raw  []string
		want []any
	}{
		{"string", "reverse_string", []string{"Rust"}, []any{"tsuR"}},
		{"ints", "add", []string{"2", "-3"}, []any{int32(-1)}},
		{"array", "sum_array", []string{"3, 1,2"}, []any{int64(6)}},
		{"points", "point_distance", []string{"0,0", "3,4"}, []any{5.0}},
		{"out scalar", "parse_int", []string{"42"}, []any{int32(42)}},
		{"unsigned", "is_prime", []string{"7"}, []any{true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := s.Registry().Lookup(tt.fn)
			require.True(t, ok)

			args, err := ParseArgs(f, tt.raw)
			require.NoError(t, err)
			got, err := s.Call(ctx, tt.fn, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	s := newSession(t)

	add, _ := s.Registry().Lookup("add")
	_, err := ParseArgs(add, []string{"1"})
	assert.Error(t, err)
	_, err = ParseArgs(add, []string{"1", "2", "3"})
	assert.Error(t, err)
	_, err = ParseArgs(add, []string{"1", "two"})
	assert.Error(t, err)

	dist, _ := s.Registry().Lookup("point_distance")
	_, err = ParseArgs(dist, []string{"1", "2,3"})
	assert.Error(t, err)
}

func TestInputs(t *testing.T) {
	reg := surface.Default()
	names := func(fn string) []string {
		f, ok := reg.Lookup(fn)
		require.True(t, ok, fn)
		var out []string
		for _, p := range Inputs(f) {
			out = append(out, p.Name)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b"}, names("add"))
	assert.Equal(t, []string{"values"}, names("sum_array"))
	assert.Equal(t, []string{"h"}, names("counter_value"))
	assert.Empty(t, names("get_version"))
}
