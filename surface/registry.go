package surface

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/signal"
)

// Registry holds exported functions in registration order.
type Registry struct {
	byName map[string]*Function
	funcs  []*Function
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Function)}
}

// Register validates f and adds it. A function is rejected when its
// signature cannot cross the boundary, its name is taken, or its result
// shape does not fit its convention.
func (r *Registry) Register(f *Function) error {
	if f == nil || f.Impl == nil {
		name := ""
		if f != nil {
			name = f.Name
		}
		return errors.Registration(name, fmt.Errorf("function has no implementation"))
	}
	if _, dup := r.byName[f.Name]; dup {
		return errors.Registration(f.Name, fmt.Errorf("symbol already registered"))
	}
	if err := f.Signature.Validate(f.Name); err != nil {
		return errors.Registration(f.Name, err)
	}
	if err := f.bindConvention(); err != nil {
		return errors.Registration(f.Name, err)
	}

	f.params, f.results = f.Signature.Lower()
	f.names = f.Signature.ParamNames()
	if f.Signature.RetPtr() {
		f.retIndex = len(f.params) - 1
		if f.Convention != signal.Tagged {
			f.results = []api.ValueType{api.ValueTypeI32}
		}
	}

	r.byName[f.Name] = f
	r.funcs = append(r.funcs, f)
	return nil
}

// MustRegister is Register for static tables.
func (r *Registry) MustRegister(fns ...*Function) {
	for _, f := range fns {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the function exported as name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// Functions returns every function in registration order.
func (r *Registry) Functions() []*Function {
	out := make([]*Function, len(r.funcs))
	copy(out, r.funcs)
	return out
}

// Len returns the number of registered functions.
func (r *Registry) Len() int { return len(r.funcs) }

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the full published surface. It panics if any built-in
// function fails registration.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		r.MustRegister(metaFunctions()...)
		r.MustRegister(mathFunctions()...)
		r.MustRegister(stringFunctions()...)
		r.MustRegister(arrayFunctions()...)
		r.MustRegister(pointFunctions()...)
		r.MustRegister(counterFunctions()...)
		r.MustRegister(calculatorFunctions()...)
		r.MustRegister(personFunctions()...)
		defaultRegistry = r
	})
	return defaultRegistry
}

func (f *Function) bindConvention() error {
	res := f.Signature.Result

	for _, c := range f.Failures {
		if c == signal.Ok || !c.Valid() {
			return fmt.Errorf("invalid failure code %d", int32(c))
		}
	}
	lowered := f.LoweredConvention()
	if lowered.CanFail() && len(f.Failures) == 0 {
		return fmt.Errorf("%s function must document its failures", lowered)
	}
	if !lowered.CanFail() && len(f.Failures) > 0 {
		return fmt.Errorf("%s function cannot report failures", lowered)
	}

	switch f.Convention {
	case signal.Infallible:
		if f.Signature.RetPtr() && !slices.Equal(f.Failures, RetPtrFailures) {
			return fmt.Errorf("struct result lowers to a retptr; failures must be %v", RetPtrFailures)
		}
	case signal.Release:
		if res != nil {
			return fmt.Errorf("release functions return nothing")
		}
	case signal.Status:
		if res == nil || *res != abi.S32 {
			return fmt.Errorf("status functions return an s32 code")
		}
	case signal.Sentinel:
		switch {
		case res == nil:
			return fmt.Errorf("sentinel functions need a result")
		case res.Kind == abi.KindPointer || res.Kind == abi.KindHandle:
			f.sentinel = 0
		case *res == abi.S32:
			f.sentinel = api.EncodeI32(-1)
		default:
			return fmt.Errorf("no sentinel value for %s", res)
		}
	case signal.Tagged:
		if res == nil || res.Kind != abi.KindStruct || !isTagged(res.Struct) {
			return fmt.Errorf("tagged functions return {success, value, code}")
		}
		f.taggedKind = res.Struct.Fields[1].Kind
	default:
		return fmt.Errorf("unknown convention %d", f.Convention)
	}
	return nil
}

func isTagged(def *abi.StructDef) bool {
	if len(def.Fields) != 3 {
		return false
	}
	return def.Fields[0] == abi.Field{Name: "success", Kind: abi.KindBool} &&
		def.Fields[1].Name == "value" &&
		def.Fields[2] == abi.Field{Name: "code", Kind: abi.KindS32}
}
