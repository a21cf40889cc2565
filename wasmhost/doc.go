// Package wasmhost serves the exported surface to WebAssembly guests as a
// wazero host module, named "ffi" by default.
//
// Every surface symbol becomes an import with its lowered core signature.
// Pointers are offsets into the calling guest's linear memory. Owned
// buffers are carved by a per-guest arena out of pages it grows onto the
// guest memory, so they never overlap the guest's own allocator.
//
//	r := wazero.NewRuntime(ctx)
//	host, err := wasmhost.Instantiate(ctx, r, wasmhost.Config{})
//	if err != nil {
//	    return err
//	}
//	defer host.Close(ctx)
//
//	gctx := host.GuestContext(ctx, "plugin")
//	mod, err := r.InstantiateWithConfig(gctx, wasm, wazero.NewModuleConfig().WithName("plugin"))
//
// Guest state is keyed by module name. Instantiate guests under
// GuestContext, or call Release, so that state is dropped with the guest.
package wasmhost
