// Package bindgen generates the artifacts host binding generators consume:
// a C header with the error code enum, handle and struct typedefs checked
// by static assertions, and one documented prototype per symbol; and a JSON
// manifest carrying the same information plus the lowered WebAssembly
// signature of every symbol.
package bindgen
