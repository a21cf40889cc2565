package guard

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/signal"
)

// State is a step in the life of one guarded call.
//
// Every call goes Entered, Executing, then exactly one of NormalReturn or
// ContainedFault, then Returned.
type State uint8

const (
	StateEntered State = iota
	StateExecuting
	StateNormalReturn
	StateContainedFault
	StateReturned
)

var stateNames = [...]string{
	StateEntered:        "entered",
	StateExecuting:      "executing",
	StateNormalReturn:   "normal_return",
	StateContainedFault: "contained_fault",
	StateReturned:       "returned",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// Tracer observes state transitions of guarded calls.
type Tracer interface {
	Trace(function string, state State)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(function string, state State)

func (f TracerFunc) Trace(function string, state State) { f(function, state) }

// Fault describes a panic that was stopped at the boundary.
type Fault struct {
	Value    any
	Function string
	Stack    []byte
	ID       uuid.UUID
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault %s in %s: %v", f.ID, f.Function, f.Value)
}

// Err converts the fault into a structured internal-fault error.
func (f *Fault) Err() error {
	return errors.New(errors.PhaseCall, errors.KindInternalFault).
		Path(f.Function).
		Value(f.Value).
		Detail("fault %s", f.ID).
		Build()
}

// Boundary contains panics raised by exported entry points. A Boundary is
// safe for concurrent use.
type Boundary struct {
	logger  *zap.Logger
	tracer  Tracer
	onFault func(*Fault)
	faults  atomic.Uint64
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithLogger sets the logger contained faults are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(b *Boundary) { b.logger = l }
}

// WithTracer installs a state tracer.
func WithTracer(t Tracer) Option {
	return func(b *Boundary) { b.tracer = t }
}

// WithFaultHook registers fn to run after each contained fault.
func WithFaultHook(fn func(*Fault)) Option {
	return func(b *Boundary) { b.onFault = fn }
}

// New creates a Boundary that logs to the package logger unless told
// otherwise.
func New(opts ...Option) *Boundary {
	b := &Boundary{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = Logger()
	}
	return b
}

// Faults returns the number of faults contained so far.
func (b *Boundary) Faults() uint64 {
	return b.faults.Load()
}

// Call runs body as the entry point name. If body panics the panic is
// recovered, logged and reported as InternalFault together with the Fault.
// Nothing is retried and no partial result survives a fault.
func (b *Boundary) Call(name string, body func() signal.Code) (code signal.Code, fault *Fault) {
	b.trace(name, StateEntered)
	defer func() {
		if r := recover(); r != nil {
			fault = b.contain(name, r)
			code = signal.InternalFault
			b.trace(name, StateContainedFault)
		} else {
			b.trace(name, StateNormalReturn)
		}
		b.trace(name, StateReturned)
	}()

	b.trace(name, StateExecuting)
	return body(), nil
}

// Run is Call for entry points that return a plain value. On a contained
// fault it returns failure.
func Run[T any](b *Boundary, name string, failure T, body func() T) T {
	var out T
	if _, fault := b.Call(name, func() signal.Code {
		out = body()
		return signal.Ok
	}); fault != nil {
		return failure
	}
	return out
}

func (b *Boundary) contain(name string, value any) *Fault {
	f := &Fault{
		ID:       uuid.New(),
		Function: name,
		Value:    value,
		Stack:    debug.Stack(),
	}
	b.faults.Add(1)

	b.logger.Error("contained fault at foreign boundary",
		zap.String("fault_id", f.ID.String()),
		zap.String("function", name),
		zap.Any("panic", value),
		zap.ByteString("stack", f.Stack))

	if b.onFault != nil {
		b.onFault(f)
	}
	return f
}

func (b *Boundary) trace(name string, s State) {
	if b.tracer != nil {
		b.tracer.Trace(name, s)
	}
}
