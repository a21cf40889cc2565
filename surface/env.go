package surface

import (
	"sync/atomic"

	"go.uber.org/zap"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/guard"
	"github.com/wippyai/ffi-bridge/handle"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

// Handle type tags. They are stable within an Env only.
const (
	CounterType    handle.TypeID = 1
	CalculatorType handle.TypeID = 2
	PersonType     handle.TypeID = 3
)

// Options configures an Env.
type Options struct {
	// Boundary contains faults. A fresh boundary is created when nil.
	Boundary *guard.Boundary

	// MaxStringLen bounds borrowed string reads. Zero means
	// buffer.DefaultMaxStringLen.
	MaxStringLen uint32

	// ArenaPages is the minimum growth step of the owned buffer arena.
	ArenaPages uint32

	// Logger receives object lifecycle events at debug level. Defaults to
	// the package logger.
	Logger *zap.Logger

	// Observer, when set, also receives object lifecycle events until the
	// Env is closed.
	Observer handle.Observer
}

// Env is the per-address-space state behind the surface: the caller's
// memory, the arena owned buffers come from, the objects behind handles,
// and the last failure code.
type Env struct {
	Memory      ffibridge.GrowableMemory
	Arena       *buffer.Arena
	Objects     *handle.Table
	Counters    *handle.Typed[*native.Counter]
	Calculators *handle.Typed[*native.Calculator]
	People      *handle.Typed[*native.Person]

	MaxStringLen uint32

	boundary  *guard.Boundary
	observers []handle.Observer
	lastCode  atomic.Int32
}

// NewEnv creates the state for one address space.
func NewEnv(mem ffibridge.GrowableMemory, opts Options) *Env {
	if opts.MaxStringLen == 0 {
		opts.MaxStringLen = buffer.DefaultMaxStringLen
	}
	if opts.Boundary == nil {
		opts.Boundary = guard.New()
	}

	if opts.Logger == nil {
		opts.Logger = Logger()
	}

	objects := handle.NewTable()
	observers := []handle.Observer{&objectLog{log: opts.Logger}}
	if opts.Observer != nil {
		observers = append(observers, opts.Observer)
	}
	for _, o := range observers {
		objects.Subscribe(o)
	}
	return &Env{
		Memory:       mem,
		Arena:        buffer.NewArena(mem, opts.ArenaPages),
		Objects:      objects,
		Counters:     handle.NewTyped[*native.Counter](objects, CounterType, "counter"),
		Calculators:  handle.NewTyped[*native.Calculator](objects, CalculatorType, "calculator"),
		People:       handle.NewTyped[*native.Person](objects, PersonType, "person"),
		MaxStringLen: opts.MaxStringLen,
		boundary:     opts.Boundary,
		observers:    observers,
	}
}

// Boundary returns the containment boundary calls run under.
func (e *Env) Boundary() *guard.Boundary { return e.boundary }

// LastCode returns the code of the most recent failed call. Successful
// calls leave it unchanged.
func (e *Env) LastCode() signal.Code {
	return signal.Code(e.lastCode.Load())
}

func (e *Env) setLastCode(c signal.Code) {
	e.lastCode.Store(int32(c))
}

// Close destroys every object still behind a handle. Observers see the
// drops and are detached afterwards.
func (e *Env) Close() error {
	err := e.Objects.Close()
	for _, o := range e.observers {
		e.Objects.Unsubscribe(o)
	}
	return err
}

// objectLog logs handle creation and destruction.
type objectLog struct {
	log *zap.Logger
}

func (o *objectLog) OnHandleEvent(ev handle.Event) {
	msg := "object created"
	if ev.Type == handle.EventDropped {
		msg = "object destroyed"
	}
	o.log.Debug(msg,
		zap.String("type", typeName(ev.TypeID)),
		zap.Uint32("handle", uint32(ev.Handle)))
}

func typeName(id handle.TypeID) string {
	switch id {
	case CounterType:
		return "counter"
	case CalculatorType:
		return "calculator"
	case PersonType:
		return "person"
	}
	return "unknown"
}
