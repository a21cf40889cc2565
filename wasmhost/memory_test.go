package wasmhost

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/buffer"
)

func guestMemory(t *testing.T) *Memory {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })

	mod, err := r.Instantiate(ctx, memoryWASM)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	return WrapMemory(mod.ExportedMemory("memory"))
}

func TestWrapMemory_Nil(t *testing.T) {
	if WrapMemory(nil) != nil {
		t.Error("expected nil for nil memory")
	}
}

func TestMemory_ReadWrite(t *testing.T) {
	mem := guestMemory(t)

	if err := mem.WriteU32(8, 0xdeadbeef); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}
	v, err := mem.ReadU32(8)
	if err != nil || v != 0xdeadbeef {
		t.Errorf("ReadU32 = %#x, %v", v, err)
	}

	if err := mem.WriteU64(16, 1<<40); err != nil {
		t.Fatalf("WriteU64: %v", err)
	}
	v64, err := mem.ReadU64(16)
	if err != nil || v64 != 1<<40 {
		t.Errorf("ReadU64 = %d, %v", v64, err)
	}

	if err := mem.WriteU8(ffibridge.PageSize, 1); err == nil {
		t.Error("expected out of bounds write to fail")
	}
	if _, err := mem.Read(ffibridge.PageSize-2, 4); err == nil {
		t.Error("expected out of bounds read to fail")
	}
}

func TestMemory_GrowRespectsMax(t *testing.T) {
	mem := guestMemory(t)

	if mem.Size() != ffibridge.PageSize {
		t.Fatalf("size = %d, want one page", mem.Size())
	}
	prev, ok := mem.Grow(1)
	if !ok || prev != 1 {
		t.Fatalf("Grow(1) = %d, %v", prev, ok)
	}
	if _, ok := mem.Grow(1); ok {
		t.Error("grew past the declared maximum")
	}
}

func TestMemory_ArenaAllocatesAboveGuestData(t *testing.T) {
	mem := guestMemory(t)
	arena := buffer.NewArena(mem, 1)

	ptr, err := buffer.WriteCString(mem, arena, "guest")
	if err != nil {
		t.Fatalf("WriteCString: %v", err)
	}
	if ptr < ffibridge.PageSize {
		t.Errorf("arena allocated %#x inside the guest's own page", ptr)
	}

	if _, err := arena.Alloc(2*ffibridge.PageSize, 8); err == nil {
		t.Error("expected allocation past the memory maximum to fail")
	}
	if err := arena.Release(ptr); err != nil {
		t.Errorf("Release: %v", err)
	}
}
