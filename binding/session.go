package binding

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/guard"
	"github.com/wippyai/ffi-bridge/layout"
	"github.com/wippyai/ffi-bridge/signal"
	"github.com/wippyai/ffi-bridge/surface"
)

// ErrClosed is returned by calls on a closed session.
var ErrClosed = stderrors.New("binding: session closed")

// Options configures a Session. The zero value is usable.
type Options struct {
	// Registry is the surface to call. Defaults to surface.Default().
	Registry *surface.Registry

	// Boundary contains faults raised by calls. A fresh one is created
	// when nil.
	Boundary *guard.Boundary

	// MaxPages caps the private address space. Defaults to 256 (16 MiB).
	MaxPages uint32

	// ArenaPages is the growth step of the owned buffer arena.
	ArenaPages uint32

	// MaxStringLen bounds borrowed string reads.
	MaxStringLen uint32
}

const defaultMaxPages = 256

// Session calls the surface in-process through a private address space,
// exactly as a foreign host would: arguments are marshalled into the
// space, the error signal is checked according to each function's
// convention, and every owned result is released once.
//
// A Session is safe for concurrent use. The objects behind a handle are
// not.
type Session struct {
	mem    *buffer.Linear
	env    *surface.Env
	reg    *surface.Registry
	closed atomic.Bool

	layoutsMu sync.Mutex
	layouts   map[string]*layout.Struct
}

// NewSession creates a session with its own address space and handle
// table.
func NewSession(opts Options) (*Session, error) {
	if opts.Registry == nil {
		opts.Registry = surface.Default()
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.ArenaPages > opts.MaxPages {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("arena step of %d pages exceeds the %d page limit", opts.ArenaPages, opts.MaxPages).
			Build()
	}

	mem := buffer.NewLinear(0, opts.MaxPages)
	env := surface.NewEnv(mem, surface.Options{
		Boundary:     opts.Boundary,
		MaxStringLen: opts.MaxStringLen,
		ArenaPages:   opts.ArenaPages,
	})
	return &Session{
		mem:     mem,
		env:     env,
		reg:     opts.Registry,
		layouts: make(map[string]*layout.Struct),
	}, nil
}

// Env returns the surface state behind the session.
func (s *Session) Env() *surface.Env { return s.env }

// Memory returns the session's address space.
func (s *Session) Memory() *buffer.Linear { return s.mem }

// Registry returns the surface the session calls.
func (s *Session) Registry() *surface.Registry { return s.reg }

// LastErrorCode returns the code of the most recent failed call.
func (s *Session) LastErrorCode() signal.Code { return s.env.LastCode() }

// Close destroys every object still behind a handle. Later calls fail
// with ErrClosed. Closing twice is a no-op.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.env.Close()
}

// Call invokes the function exported as name. Arguments follow the
// declared parameters with these Go types:
//
//	s32, u32, f64        int32, uint32, float64 (or int)
//	handle               handle.Handle (or uint32)
//	point by value       native.Point
//	borrowed cstring     string
//	s32 array + len      []int32; the length is filled in
//	mutable s32 array    []int32, sorted in place on return
//	mutable point        *native.Point, updated on return
//	out byte buffer      []byte, filled on return
//	owned pointer        uint32 address returned by an earlier raw call
//
// Out scalars are allocated by the session and take no argument.
//
// The returned values are the decoded result, if the function has one
// that is not a status code, followed by each out scalar in order.
// Owned strings and arrays are copied out and released before Call
// returns. A failed call returns a *signal.Error.
func (s *Session) Call(ctx context.Context, name string, args ...any) ([]any, error) {
	fr := s.frame(name)
	defer fr.release()

	fr.marshal(args)
	stack, err := fr.invoke(ctx)
	if err != nil {
		return nil, err
	}
	return fr.unmarshal(ctx, stack)
}

// CallRaw invokes name with already-lowered arguments and returns the raw
// stack. The retptr of a struct or tagged result must be included. The
// error signal is checked, but owned results are left to the caller.
func (s *Session) CallRaw(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	fr := s.frame(name)
	defer fr.release()

	if fr.err == nil {
		fr.args = append(fr.args, args...)
		fr.rawRetPtr = true
	}
	return fr.invoke(ctx)
}

func (s *Session) resultLayout(def string, build func() (*layout.Struct, error)) (*layout.Struct, error) {
	s.layoutsMu.Lock()
	defer s.layoutsMu.Unlock()

	if l, ok := s.layouts[def]; ok {
		return l, nil
	}
	l, err := build()
	if err != nil {
		return nil, err
	}
	s.layouts[def] = l
	return l, nil
}

// release calls a release symbol. Release functions cannot fail, so only
// a closed session or unknown symbol is reported.
func (s *Session) release(ctx context.Context, name string, args ...uint64) error {
	_, err := s.CallRaw(ctx, name, args...)
	return err
}
