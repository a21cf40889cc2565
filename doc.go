// Package ffibridge exposes native Go functions and objects across a
// foreign function boundary to C, WebAssembly, and dynamic-language hosts.
//
// One declarative surface describes every exported symbol: its C ABI
// signature, how it signals failure, and who owns the memory it returns.
// The same surface is served to WebAssembly guests by a wazero host module
// and is mirrored by a c-shared library, a generated C header, and a JSON
// manifest for ctypes/ffi-napi style loaders.
//
// # Architecture Overview
//
//	ffibridge/           Root package with Memory, Allocator and ABIVersion
//	├── abi/             Primitive type mapping and signature validation
//	├── buffer/          Owned buffer protocol: arena allocator, strings, arrays
//	├── layout/          Fixed-layout struct marshalling
//	├── signal/          Error codes, conventions and tagged results
//	├── guard/           Panic containment boundary
//	├── handle/          Generational opaque handle table
//	├── native/          The Go functions and objects being exported
//	├── surface/         The exported function surface
//	├── binding/         In-process Go host binding
//	├── wasmhost/        wazero host module "ffi"
//	├── bindgen/         C header and JSON manifest generation
//	├── config/          Environment configuration
//	└── errors/          Structured error types
//
// # Quick Start
//
// Call the surface from Go with a private address space:
//
//	s, err := binding.NewSession(binding.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	out, err := s.ReverseString("Rust")
//	fmt.Println(out) // "tsuR"
//
// Serve the surface to a WebAssembly guest:
//
//	r := wazero.NewRuntime(ctx)
//	host, err := wasmhost.Instantiate(ctx, r, wasmhost.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close(ctx)
//
//	mod, err := r.Instantiate(ctx, guestWASM) // imports "ffi"
//
// # Ownership
//
// Every buffer the surface returns is allocated by the surface and must be
// released through free_string or free_buffer. Every handle returned by a
// *_new symbol must be released through the matching *_destroy symbol.
// Releasing null or a stale handle is a no-op.
//
// # Thread Safety
//
// Calls are synchronous. Handle tables and arenas are safe for concurrent
// use, but the objects behind a handle are not: concurrent calls against
// the same handle need external synchronization.
package ffibridge
