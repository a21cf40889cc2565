package bindgen

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/layout"
	"github.com/wippyai/ffi-bridge/signal"
	"github.com/wippyai/ffi-bridge/surface"
)

// Model is the surface flattened into what binding generators need.
type Model struct {
	Library    string
	ABIVersion uint32
	Codes      []signal.Code
	Handles    []string
	Structs    []*layout.Struct
	Symbols    []Symbol
}

// Symbol describes one exported function.
type Symbol struct {
	Function *surface.Function

	// Signal says how the caller detects failure.
	Signal string

	// Release names the symbol that releases the result, if the result
	// is owned.
	Release string
}

func (s Symbol) Name() string  { return s.Function.Name }
func (s Symbol) CDecl() string { return s.Function.Signature.CDecl(s.Function.Name) }

// Build collects the model for reg. Structs and handles appear in the
// order the surface first uses them.
func Build(library string, reg *surface.Registry) (*Model, error) {
	m := &Model{
		Library:    library,
		ABIVersion: ffibridge.ABIVersion,
		Codes:      signal.Codes(),
	}

	seenStruct := make(map[string]bool)
	seenHandle := make(map[string]bool)
	visit := func(t abi.Type) error {
		switch {
		case t.Kind == abi.KindHandle && !seenHandle[t.Handle]:
			seenHandle[t.Handle] = true
			m.Handles = append(m.Handles, t.Handle)
		case t.Struct != nil && !seenStruct[t.Struct.Name]:
			l, err := layout.New(t.Struct)
			if err != nil {
				return err
			}
			seenStruct[t.Struct.Name] = true
			m.Structs = append(m.Structs, l)
		}
		return nil
	}

	for _, f := range reg.Functions() {
		for _, p := range f.Signature.Params {
			if err := visit(p.Type); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", f.Name, p.Name, err)
			}
		}
		if f.Signature.Result != nil {
			if err := visit(*f.Signature.Result); err != nil {
				return nil, fmt.Errorf("%s result: %w", f.Name, err)
			}
		}
		m.Symbols = append(m.Symbols, Symbol{
			Function: f,
			Signal:   signalText(f),
			Release:  releaseFor(reg, f),
		})
	}
	return m, nil
}

// CodeConst returns the C enumerator for a code, e.g. FFI_NULL_INPUT.
func CodeConst(c signal.Code) string {
	return "FFI_" + strings.ToUpper(c.String())
}

func signalText(f *surface.Function) string {
	switch f.Convention {
	case signal.Sentinel:
		return fmt.Sprintf("returns %s on failure; last_error_code() holds the reason", sentinelText(f))
	case signal.Tagged:
		return "returns {success, value, code}; value is meaningful only when success is true"
	case signal.Status:
		return "returns FFI_OK or an error code; out parameters are written only on FFI_OK"
	case signal.Release:
		return "releases ownership; NULL and stale values are ignored"
	default:
		if f.LoweredConvention() == signal.Status {
			return "cannot fail in C; the lowered form takes a retptr and returns FFI_OK or an error code"
		}
		return "cannot fail"
	}
}

func sentinelText(f *surface.Function) string {
	switch f.Signature.Result.Kind {
	case abi.KindPointer:
		return "NULL"
	case abi.KindHandle:
		return "0"
	default:
		return fmt.Sprint(api.DecodeI32(f.Sentinel()))
	}
}

// releaseFor finds the symbol a caller must pass f's owned result to.
func releaseFor(reg *surface.Registry, f *surface.Function) string {
	res := f.Signature.Result
	if res == nil {
		return ""
	}
	var name string
	switch {
	case res.Kind == abi.KindHandle:
		name = res.Handle + "_destroy"
	case res.Owned() && res.Pointee == abi.PointeeCString:
		name = "free_string"
	case res.Owned():
		name = "free_buffer"
	default:
		return ""
	}
	if _, ok := reg.Lookup(name); !ok {
		return ""
	}
	return name
}

// Failures renders a symbol's failure codes as C enumerators.
func (s Symbol) Failures() []string {
	out := make([]string, len(s.Function.Failures))
	for i, c := range s.Function.Failures {
		out[i] = CodeConst(c)
	}
	return out
}
