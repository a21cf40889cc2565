package bindgen

import (
	"encoding/json"
	"io"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ffi-bridge/abi"
)

// Manifest is the machine-readable symbol table for ctypes and ffi-napi
// style loaders.
type Manifest struct {
	Library    string           `json:"library"`
	ABIVersion uint32           `json:"abi_version"`
	Codes      []ManifestCode   `json:"codes"`
	Handles    []string         `json:"handles"`
	Structs    []ManifestStruct `json:"structs"`
	Functions  []ManifestFunc   `json:"functions"`
}

type ManifestCode struct {
	Name  string `json:"name"`
	Const string `json:"const"`
	Value int32  `json:"value"`
}

type ManifestStruct struct {
	Name   string          `json:"name"`
	CName  string          `json:"c_name"`
	Fields []ManifestField `json:"fields"`
	Size   uint32          `json:"size"`
	Align  uint32          `json:"align"`
}

type ManifestField struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	CType  string `json:"c_type"`
	Offset uint32 `json:"offset"`
}

type ManifestParam struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	CType  string `json:"c_type"`
	Access string `json:"access,omitempty"`
}

type ManifestFunc struct {
	Name        string          `json:"name"`
	Doc         string          `json:"doc"`
	CDecl       string          `json:"c_decl"`
	Convention  string          `json:"convention"`
	WASMSignal  string          `json:"wasm_convention"`
	Signal      string          `json:"signal"`
	Params      []ManifestParam `json:"params"`
	Result      *ManifestParam  `json:"result,omitempty"`
	Failures    []string        `json:"failures,omitempty"`
	Release     string          `json:"release,omitempty"`
	WASMParams  []string        `json:"wasm_params"`
	WASMResults []string        `json:"wasm_results"`
}

// NewManifest converts m into its JSON form.
func NewManifest(m *Model) *Manifest {
	out := &Manifest{
		Library:    m.Library,
		ABIVersion: m.ABIVersion,
		Handles:    m.Handles,
	}
	for _, c := range m.Codes {
		out.Codes = append(out.Codes, ManifestCode{Name: c.String(), Const: CodeConst(c), Value: int32(c)})
	}
	for _, l := range m.Structs {
		s := ManifestStruct{Name: l.Def.Name, CName: l.Def.CName(), Size: l.Size(), Align: l.Align()}
		for i, f := range l.Def.Fields {
			s.Fields = append(s.Fields, ManifestField{
				Name:   f.Name,
				Type:   f.Kind.String(),
				CType:  f.Kind.CName(),
				Offset: l.Offset(i),
			})
		}
		out.Structs = append(out.Structs, s)
	}

	for _, sym := range m.Symbols {
		f := sym.Function
		mf := ManifestFunc{
			Name:       f.Name,
			Doc:        f.Doc,
			CDecl:      sym.CDecl(),
			Convention: f.Convention.String(),
			WASMSignal: f.LoweredConvention().String(),
			Signal:     sym.Signal,
			Params:     []ManifestParam{},
			Release:    sym.Release,
		}
		for _, p := range f.Signature.Params {
			mf.Params = append(mf.Params, manifestParam(p.Name, p.Type))
		}
		if f.Signature.Result != nil {
			r := manifestParam("", *f.Signature.Result)
			mf.Result = &r
		}
		for _, c := range f.Failures {
			mf.Failures = append(mf.Failures, c.String())
		}
		params, results := f.Lowered()
		mf.WASMParams = valueTypeNames(params)
		mf.WASMResults = valueTypeNames(results)
		out.Functions = append(out.Functions, mf)
	}
	return out
}

func manifestParam(name string, t abi.Type) ManifestParam {
	p := ManifestParam{Name: name, Type: t.String(), CType: t.CName()}
	if t.IsPointer() || t.Kind == abi.KindHandle {
		p.Access = t.Access.String()
	}
	return p
}

func valueTypeNames(types []api.ValueType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = api.ValueTypeName(t)
	}
	return out
}

// WriteManifest writes the manifest for m as indented JSON.
func WriteManifest(w io.Writer, m *Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewManifest(m))
}
