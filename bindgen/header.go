package bindgen

import (
	"io"
	"strings"
	"text/template"

	"github.com/wippyai/ffi-bridge/layout"
)

var headerFuncs = template.FuncMap{
	"upper":     strings.ToUpper,
	"codeConst": CodeConst,
	"join":      strings.Join,
	"fields":    structFields,
	"comment":   comment,
}

func structFields(l *layout.Struct) []fieldInfo {
	out := make([]fieldInfo, len(l.Def.Fields))
	for i, f := range l.Def.Fields {
		out[i] = fieldInfo{Name: f.Name, CType: f.Kind.CName(), Offset: l.Offset(i)}
	}
	return out
}

// comment keeps text from closing the surrounding C comment.
func comment(s string) string {
	return strings.ReplaceAll(s, "*/", "* /")
}

type fieldInfo struct {
	Name   string
	CType  string
	Offset uint32
}

var headerTemplate = template.Must(template.New("header").Funcs(headerFuncs).Parse(`/*
 * {{.Library}}.h
 *
 * Generated from the exported surface. Do not edit.
 *
 * Every owned result must be released exactly once through the symbol
 * named in its documentation. Calls are synchronous; objects behind a
 * handle are not safe for concurrent use.
 */
#ifndef {{upper .Library}}_H
#define {{upper .Library}}_H

#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>

#define {{upper .Library}}_ABI_VERSION {{.ABIVersion}}

#ifdef __cplusplus
#define FFI_STATIC_ASSERT static_assert
extern "C" {
#else
#define FFI_STATIC_ASSERT _Static_assert
#endif

typedef enum ffi_code {
{{- range .Codes}}
    {{codeConst .}} = {{printf "%d" .}},
{{- end}}
} ffi_code;
{{range .Handles}}
/* Opaque {{.}} handle. 0 is never a valid handle. */
typedef uint32_t ffi_{{.}};
{{end}}
{{- range .Structs}}
typedef struct {{.Def.CName}} {
{{- range fields .}}
    {{.CType}} {{.Name}};
{{- end}}
} {{.Def.CName}};
FFI_STATIC_ASSERT(sizeof({{.Def.CName}}) == {{.Size}}, "{{.Def.CName}} size");
{{- $s := .}}
{{- range fields .}}
FFI_STATIC_ASSERT(offsetof({{$s.Def.CName}}, {{.Name}}) == {{.Offset}}, "{{$s.Def.CName}}.{{.Name}} offset");
{{- end}}
{{end}}
{{- range .Symbols}}
/*
 * {{comment .Function.Doc}}
 *
 * Convention: {{.Function.Convention}}; {{.Signal}}.
{{- if .Function.Failures}}
 * Failures: {{join .Failures ", "}}.
{{- end}}
{{- if .Release}}
 * Ownership: the result is owned by the caller; release it with {{.Release}}.
{{- end}}
 */
{{.CDecl}};
{{end}}
#ifdef __cplusplus
}
#endif

#endif /* {{upper .Library}}_H */
`))

// Header writes the C header for m.
func Header(w io.Writer, m *Model) error {
	return headerTemplate.Execute(w, m)
}
