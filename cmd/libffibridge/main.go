// Command libffibridge builds the surface as a C shared library:
//
//	go build -buildmode=c-shared -o libffibridge.so ./cmd/libffibridge
//
// Every symbol is a flat, unmangled C function with the signature and
// error convention published in the generated ffibridge.h. Owned strings
// and buffers come from the C heap and are released only through
// free_string and free_buffer.
package main

/*
#include "ffibridge_types.h"

// C.malloc aborts on exhaustion; this returns NULL instead.
static void *ffi_malloc(size_t n) { return malloc(n); }
*/
import "C"

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"unicode/utf8"
	"unsafe"

	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/config"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/guard"
	"github.com/wippyai/ffi-bridge/handle"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

func main() {}

// library is the process-wide state behind the exported symbols.
type library struct {
	boundary     *guard.Boundary
	logger       *zap.Logger
	objects      *handle.Table
	counters     *handle.Typed[*native.Counter]
	calculators  *handle.Typed[*native.Calculator]
	people       *handle.Typed[*native.Person]
	allocs       allocations
	maxStringLen uint32

	// lastCode is shared by every thread of the process.
	lastCode atomic.Int32
}

const (
	counterType handle.TypeID = iota + 1
	calculatorType
	personType
)

var lib = newLibrary()

func newLibrary() *library {
	cfg, err := config.Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "libffibridge: %v; using defaults\n", err)
		cfg, _ = config.LoadFrom(context.Background(), envconfig.MapLookuper(nil))
	}
	logger, err := cfg.Logger()
	if err != nil {
		logger = zap.NewNop()
	}
	guard.SetLogger(logger.Named("guard"))

	objects := handle.NewTable()
	return &library{
		boundary:     guard.New(),
		logger:       logger,
		objects:      objects,
		counters:     handle.NewTyped[*native.Counter](objects, counterType, "counter"),
		calculators:  handle.NewTyped[*native.Calculator](objects, calculatorType, "calculator"),
		people:       handle.NewTyped[*native.Person](objects, personType, "person"),
		allocs:       newAllocations(),
		maxStringLen: cfg.MaxStringLen,
	}
}

// call runs body inside the containment boundary and records a failure
// in last_error_code.
func (l *library) call(name string, body func() signal.Code) signal.Code {
	code, _ := l.boundary.Call(name, body)
	if code != signal.Ok {
		l.lastCode.Store(int32(code))
	}
	return code
}

// sentinel runs a function whose failure is signalled by returning
// failure.
func sentinel[T any](name string, failure T, body func() (T, signal.Code)) T {
	var out T
	code := lib.call(name, func() signal.Code {
		v, c := body()
		out = v
		return c
	})
	if code != signal.Ok {
		return failure
	}
	return out
}

// tagged runs a function returning {success, value, code}; value is only
// set on success.
func tagged[T any](name string, body func() (T, signal.Code)) (T, bool, C.int32_t) {
	var out T
	code := lib.call(name, func() signal.Code {
		v, c := body()
		out = v
		return c
	})
	if code != signal.Ok {
		var zero T
		return zero, false, C.int32_t(code)
	}
	return out, true, C.int32_t(signal.Ok)
}

func status(name string, body func() signal.Code) C.int32_t {
	return C.int32_t(lib.call(name, body))
}

// goString copies a borrowed C string, bounded by the configured limit.
func goString(s *C.char, param string) (string, error) {
	if s == nil {
		return "", errors.NullInput(errors.PhaseUnmarshal, param)
	}
	limit := lib.maxStringLen
	n := uint32(C.strnlen(s, C.size_t(limit)+1))
	if n > limit {
		return "", errors.New(errors.PhaseUnmarshal, errors.KindInvalidInput).
			Path(param).
			Detail("no terminator within %d bytes", limit).
			Build()
	}
	str := C.GoStringN(s, C.int(n))
	if !utf8.ValidString(str) {
		return "", errors.InvalidUTF8(errors.PhaseUnmarshal, []string{param}, []byte(str))
	}
	return str, nil
}

// int32s returns a view of a borrowed array. A null array is rejected even
// when n is zero.
func int32s(values *C.int32_t, n C.uint32_t) ([]int32, error) {
	if values == nil {
		return nil, errors.NullInput(errors.PhaseUnmarshal, "values")
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(values)), int(n)), nil
}

// allocations tracks the owned buffers handed to callers so that release
// of an unknown or already released pointer is detected.
type allocations struct {
	mu     sync.Mutex
	live   map[unsafe.Pointer]uint32
	malloc func(size uint32) unsafe.Pointer
}

func newAllocations() allocations {
	return allocations{
		live:   make(map[unsafe.Pointer]uint32),
		malloc: func(size uint32) unsafe.Pointer { return C.ffi_malloc(C.size_t(size)) },
	}
}

func (a *allocations) alloc(size uint32) (unsafe.Pointer, error) {
	p := a.malloc(max(size, 1))
	if p == nil {
		return nil, errors.AllocationFailed(errors.PhaseAlloc, size, 1)
	}
	a.mu.Lock()
	a.live[p] = size
	a.mu.Unlock()
	return p, nil
}

func (a *allocations) cstring(s string) (*C.char, error) {
	if uint64(len(s)) >= math.MaxUint32 {
		return nil, errors.AllocationFailed(errors.PhaseAlloc, math.MaxUint32, 1)
	}
	p, err := a.alloc(uint32(len(s)) + 1)
	if err != nil {
		return nil, err
	}
	buf := unsafe.Slice((*byte)(p), len(s)+1)
	copy(buf, s)
	buf[len(s)] = 0
	return (*C.char)(p), nil
}

// release frees p. When sized is set, size must match the allocation.
// Null is a no-op.
func (a *allocations) release(p unsafe.Pointer, size uint32, sized bool) error {
	if p == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	have, ok := a.live[p]
	if !ok {
		return errors.New(errors.PhaseRelease, errors.KindUnknownPointer).
			Value(uintptr(p)).
			Detail("pointer %p is not a live allocation", p).
			Build()
	}
	if sized && have != size {
		return errors.New(errors.PhaseRelease, errors.KindInvalidInput).
			Value(uintptr(p)).
			Detail("release of %d bytes at %p, allocation holds %d", size, p, have).
			Build()
	}
	delete(a.live, p)
	C.free(p)
	return nil
}
