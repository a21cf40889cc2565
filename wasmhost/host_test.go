package wasmhost

import (
	"context"
	"slices"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/signal"
	"github.com/wippyai/ffi-bridge/surface"
)

// guestWASM imports ffi.reverse_string, ffi.free_string and
// ffi.last_error_code, and re-exports them as rev, free and last_error
// next to one page of memory.
var guestWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version

	// type section: (i32)->i32, (i32)->(), ()->i32
	0x01, 0x0e, 0x03,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,
	0x60, 0x00, 0x01, 0x7f,

	// import section
	0x02, 0x3e, 0x03,
	0x03, 'f', 'f', 'i',
	0x0e, 'r', 'e', 'v', 'e', 'r', 's', 'e', '_', 's', 't', 'r', 'i', 'n', 'g',
	0x00, 0x00,
	0x03, 'f', 'f', 'i',
	0x0b, 'f', 'r', 'e', 'e', '_', 's', 't', 'r', 'i', 'n', 'g',
	0x00, 0x01,
	0x03, 'f', 'f', 'i',
	0x0f, 'l', 'a', 's', 't', '_', 'e', 'r', 'r', 'o', 'r', '_', 'c', 'o', 'd', 'e',
	0x00, 0x02,

	// function section: three functions of types 0, 1, 2
	0x03, 0x04, 0x03, 0x00, 0x01, 0x02,

	// memory section: 1 page, no max
	0x05, 0x03, 0x01, 0x00, 0x01,

	// export section
	0x07, 0x24, 0x04,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x03, 'r', 'e', 'v', 0x00, 0x03,
	0x04, 'f', 'r', 'e', 'e', 0x00, 0x04,
	0x0a, 'l', 'a', 's', 't', '_', 'e', 'r', 'r', 'o', 'r', 0x00, 0x05,

	// code section
	0x0a, 0x14, 0x03,
	0x06, 0x00, 0x20, 0x00, 0x10, 0x00, 0x0b, // rev: local.get 0; call 0
	0x06, 0x00, 0x20, 0x00, 0x10, 0x01, 0x0b, // free: local.get 0; call 1
	0x04, 0x00, 0x10, 0x02, 0x0b, // last_error: call 2
}

// memoryWASM exports one page of memory with a maximum of two.
var memoryWASM = []byte{
	0x00, 0x61, 0x73, 0x6d,
	0x01, 0x00, 0x00, 0x00,
	0x05, 0x04, 0x01, 0x01, 0x01, 0x02, // memory section: min 1, max 2
	0x07, 0x0a, 0x01,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
}

func newRuntime(t *testing.T) (context.Context, wazero.Runtime, *Host) {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })

	host, err := Instantiate(ctx, r, Config{})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	t.Cleanup(func() { host.Close(ctx) })
	return ctx, r, host
}

func instantiateGuest(t *testing.T, ctx context.Context, r wazero.Runtime, name string) api.Module {
	t.Helper()
	mod, err := r.InstantiateWithConfig(ctx, guestWASM, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		t.Fatalf("instantiate guest %s: %v", name, err)
	}
	return mod
}

func call(t *testing.T, ctx context.Context, mod api.Module, name string, args ...uint64) []uint64 {
	t.Helper()
	results, err := mod.ExportedFunction(name).Call(ctx, args...)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return results
}

func TestInstantiate_ExportsSurface(t *testing.T) {
	_, _, host := newRuntime(t)

	defs := host.Module().ExportedFunctionDefinitions()
	if len(defs) != surface.Default().Len() {
		t.Fatalf("exported %d functions, want %d", len(defs), surface.Default().Len())
	}

	for _, f := range surface.Default().Functions() {
		def, ok := defs[f.Name]
		if !ok {
			t.Errorf("%s not exported", f.Name)
			continue
		}
		params, results := f.Lowered()
		if !slices.Equal(def.ParamTypes(), params) {
			t.Errorf("%s params = %v, want %v", f.Name, def.ParamTypes(), params)
		}
		if !slices.Equal(def.ResultTypes(), results) {
			t.Errorf("%s results = %v, want %v", f.Name, def.ResultTypes(), results)
		}
	}
}

func TestInstantiate_ModuleName(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	host, err := Instantiate(ctx, r, Config{ModuleName: "native"})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer host.Close(ctx)

	if got := host.Module().Name(); got != "native" {
		t.Errorf("module name = %q, want native", got)
	}
	if _, err := r.Instantiate(ctx, guestWASM); err == nil {
		t.Error("guest importing ffi should not link against native")
	}
}

func TestGuest_ReverseString(t *testing.T) {
	ctx, r, host := newRuntime(t)
	mod := instantiateGuest(t, ctx, r, "guest")

	const input = 16
	if !mod.Memory().Write(input, []byte("Rust\x00")) {
		t.Fatal("write input")
	}

	ptr := uint32(call(t, ctx, mod, "rev", input)[0])
	if ptr == 0 {
		t.Fatal("reverse_string returned null")
	}
	if ptr < 65536 {
		t.Errorf("result at %#x lies in guest-owned memory", ptr)
	}

	got, err := buffer.ReadCString(WrapMemory(mod.Memory()), ptr, 0)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if got != "tsuR" {
		t.Errorf("reverse_string = %q, want tsuR", got)
	}

	env, ok := host.Env("guest")
	if !ok {
		t.Fatal("no state for guest")
	}
	if env.Arena.Live() != 1 {
		t.Errorf("live buffers = %d, want 1", env.Arena.Live())
	}

	call(t, ctx, mod, "free", uint64(ptr))
	if env.Arena.Live() != 0 {
		t.Errorf("live buffers after free = %d, want 0", env.Arena.Live())
	}

	// A second free and a null free are ignored.
	call(t, ctx, mod, "free", uint64(ptr))
	call(t, ctx, mod, "free", 0)
}

func TestGuest_NullInput(t *testing.T) {
	ctx, r, _ := newRuntime(t)
	mod := instantiateGuest(t, ctx, r, "guest")

	if code := call(t, ctx, mod, "last_error")[0]; code != 0 {
		t.Errorf("initial last_error_code = %d, want 0", code)
	}
	if ptr := call(t, ctx, mod, "rev", 0)[0]; ptr != 0 {
		t.Errorf("reverse_string(NULL) = %#x, want 0", ptr)
	}
	if code := signal.Code(api.DecodeI32(call(t, ctx, mod, "last_error")[0])); code != signal.NullInput {
		t.Errorf("last_error_code = %s, want null_input", code)
	}
}

func TestGuest_InvalidUTF8(t *testing.T) {
	ctx, r, _ := newRuntime(t)
	mod := instantiateGuest(t, ctx, r, "guest")

	mod.Memory().Write(32, []byte{0xff, 0xfe, 0x00})
	if ptr := call(t, ctx, mod, "rev", 32)[0]; ptr != 0 {
		t.Errorf("reverse_string(invalid) = %#x, want 0", ptr)
	}
	if code := signal.Code(api.DecodeI32(call(t, ctx, mod, "last_error")[0])); code != signal.InvalidInput {
		t.Errorf("last_error_code = %s, want invalid_input", code)
	}
}

func TestGuests_Isolated(t *testing.T) {
	ctx, r, host := newRuntime(t)
	a := instantiateGuest(t, ctx, r, "a")
	b := instantiateGuest(t, ctx, r, "b")

	call(t, ctx, a, "rev", 0)
	b.Memory().Write(16, []byte("ok\x00"))
	call(t, ctx, b, "rev", 16)

	if got := host.Guests(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("guests = %v", got)
	}
	if code := call(t, ctx, b, "last_error")[0]; code != 0 {
		t.Errorf("guest b sees last_error_code %d from guest a", code)
	}

	host.Release("a")
	host.Release("missing")
	if got := host.Guests(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("guests after release = %v", got)
	}
}

func TestGuestContext_ReleasesOnClose(t *testing.T) {
	ctx, r, host := newRuntime(t)

	gctx := host.GuestContext(ctx, "short-lived")
	mod, err := r.InstantiateWithConfig(gctx, guestWASM, wazero.NewModuleConfig().WithName("short-lived"))
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	call(t, ctx, mod, "rev", 0)
	if _, ok := host.Env("short-lived"); !ok {
		t.Fatal("guest state not created")
	}

	if err := mod.Close(ctx); err != nil {
		t.Fatalf("close guest: %v", err)
	}
	if _, ok := host.Env("short-lived"); ok {
		t.Error("guest state survived close")
	}
}

func TestHost_CloseReleasesAll(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	host, err := Instantiate(ctx, r, Config{})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	mod := instantiateGuest(t, ctx, r, "guest")
	call(t, ctx, mod, "rev", 0)

	if err := host.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(host.Guests()); n != 0 {
		t.Errorf("guests after close = %d", n)
	}
}
