package abi

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ffi-bridge/errors"
)

// Param is a named parameter of a boundary signature.
type Param struct {
	Name string
	Type Type
}

// Signature is the C ABI shape of an exported symbol. Result is nil for
// functions returning void.
type Signature struct {
	Result *Type
	Params []Param
}

// Returns is a helper for building a Signature result.
func Returns(t Type) *Type { return &t }

// RetPtr reports whether the result travels through a trailing pointer
// parameter when lowered to core WebAssembly.
func (s Signature) RetPtr() bool {
	return s.Result != nil && s.Result.Kind == KindStruct
}

// Lower returns the core WebAssembly parameter and result types. Struct
// results are written through a trailing i32 retptr.
func (s Signature) Lower() (params, results []api.ValueType) {
	for _, p := range s.Params {
		params = append(params, p.Type.Flat()...)
	}
	switch {
	case s.Result == nil:
	case s.RetPtr():
		params = append(params, api.ValueTypeI32)
	default:
		results = []api.ValueType{s.Result.Kind.ValueType()}
	}
	return params, results
}

// ParamNames returns one name per lowered parameter. Flattened struct
// fields are named param_field.
func (s Signature) ParamNames() []string {
	var names []string
	for _, p := range s.Params {
		if p.Type.Kind == KindStruct && p.Type.Struct != nil {
			for _, f := range p.Type.Struct.Fields {
				names = append(names, p.Name+"_"+f.Name)
			}
			continue
		}
		names = append(names, p.Name)
	}
	if s.RetPtr() {
		names = append(names, "retptr")
	}
	return names
}

// CDecl renders the C prototype for symbol, without a trailing semicolon.
func (s Signature) CDecl(symbol string) string {
	ret := "void"
	if s.Result != nil {
		ret = s.Result.CName()
	}
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.Type.CName() + " " + p.Name
	}
	if len(params) == 0 {
		params = []string{"void"}
	}
	return fmt.Sprintf("%s %s(%s)", ret, symbol, strings.Join(params, ", "))
}

// String renders the signature for listings.
func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.Name + ": " + p.Type.String()
	}
	out := "(" + strings.Join(params, ", ") + ")"
	if s.Result != nil {
		out += " -> " + s.Result.String()
	}
	return out
}

// Validate checks that every parameter and the result can cross the
// boundary with a fixed C representation.
func (s Signature) Validate(symbol string) error {
	if !validSymbol(symbol) {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Path(symbol).
			Detail("symbol must be a lowercase C identifier").
			Build()
	}

	seen := make(map[string]bool, len(s.Params))
	for i, p := range s.Params {
		if p.Name == "" || seen[p.Name] {
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Path(symbol, fmt.Sprintf("param%d", i)).
				Detail("parameter names must be unique and non-empty").
				Build()
		}
		seen[p.Name] = true

		if err := validateType(p.Type, []string{symbol, p.Name}); err != nil {
			return err
		}
		if p.Type.Pointee == PointeeArray || p.Type.Pointee == PointeeBytes {
			if i+1 >= len(s.Params) || s.Params[i+1].Type != U32 {
				return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
					Path(symbol, p.Name).
					CType(p.Type.CName()).
					Detail("buffer parameter must be followed by a u32 length").
					Build()
			}
		}
	}

	if s.Result == nil {
		return nil
	}
	r := *s.Result
	path := []string{symbol, "result"}
	if err := validateType(r, path); err != nil {
		return err
	}
	if (r.Kind == KindPointer || r.Kind == KindHandle) && r.Access != AccessOwned {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Path(path...).
			CType(r.CName()).
			Detail("returned pointers and handles must transfer ownership").
			Build()
	}
	return nil
}

func validateType(t Type, path []string) error {
	if t.Kind.IsNativeOnly() {
		return errors.New(errors.PhaseRegister, errors.KindUnsupported).
			Path(path...).
			Detail("native-only %s cannot cross the boundary by value", t.Kind).
			Build()
	}

	switch t.Kind {
	case KindStruct:
		return ValidateStruct(t.Struct, path)
	case KindHandle:
		if t.Handle == "" {
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Path(path...).
				Detail("handle type must be named").
				Build()
		}
	case KindPointer:
		switch t.Pointee {
		case PointeeNone:
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Path(path...).
				Detail("pointer must declare what it addresses").
				Build()
		case PointeeStruct:
			return ValidateStruct(t.Struct, path)
		case PointeeArray, PointeeScalar:
			if !t.Elem.IsPrimitive() {
				return errors.New(errors.PhaseRegister, errors.KindUnsupported).
					Path(path...).
					Detail("pointer element %s is not a primitive", t.Elem).
					Build()
			}
		}
	}
	return nil
}

// ValidateStruct rejects structs that are empty or have non-primitive
// fields. A struct holding a buffer must be exposed as a handle instead.
func ValidateStruct(def *StructDef, path []string) error {
	if def == nil || def.Name == "" || len(def.Fields) == 0 {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Path(path...).
			Detail("struct must be named and have fields").
			Build()
	}
	for _, f := range def.Fields {
		if !f.Kind.IsPrimitive() {
			return errors.New(errors.PhaseRegister, errors.KindUnsupported).
				Path(append(path, def.Name, f.Name)...).
				Detail("struct field of kind %s is not fixed-layout", f.Kind).
				Build()
		}
	}
	return nil
}

func validSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || (c >= 'a' && c <= 'z'):
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
