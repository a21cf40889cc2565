// Package surface is the published table of exported functions.
//
// Each Function carries its C signature, the convention it uses to report
// failure, the failure codes it documents, and an Impl written against a
// lowered, wazero-style value stack:
//
//	f, _ := surface.Default().Lookup("reverse_string")
//	env := surface.NewEnv(mem, surface.Options{})
//	stack := []uint64{api.EncodeU32(inputPtr)}
//	code := f.Invoke(ctx, env, stack) // stack[0] is the owned result
//
// Invoke runs the Impl inside env's containment boundary. When the call
// fails, the surface itself writes the failure: the sentinel into
// stack[0], {success: false, code} through the retptr, or the status code.
// The Impl only writes results on success.
//
// Struct results (tagged results and point) travel through a trailing
// retptr parameter. Struct parameters are flattened field by field.
//
// An Env is one address space: its memory, the arena owned buffers are
// allocated from, the handle table and the last error code. Envs are
// independent of each other.
package surface
