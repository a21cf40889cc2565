package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ffi-bridge/errors"
)

var pointDef = &StructDef{
	Name:   "point",
	Fields: []Field{{Name: "x", Kind: KindF64}, {Name: "y", Kind: KindF64}},
}

func TestKind_Mapping(t *testing.T) {
	tests := []struct {
		kind  Kind
		size  uint32
		cname string
		vt    api.ValueType
	}{
		{KindBool, 1, "bool", api.ValueTypeI32},
		{KindS8, 1, "int8_t", api.ValueTypeI32},
		{KindU16, 2, "uint16_t", api.ValueTypeI32},
		{KindS32, 4, "int32_t", api.ValueTypeI32},
		{KindU32, 4, "uint32_t", api.ValueTypeI32},
		{KindS64, 8, "int64_t", api.ValueTypeI64},
		{KindU64, 8, "uint64_t", api.ValueTypeI64},
		{KindF32, 4, "float", api.ValueTypeF32},
		{KindF64, 8, "double", api.ValueTypeF64},
		{KindPointer, 4, "void*", api.ValueTypeI32},
		{KindHandle, 4, "uintptr_t", api.ValueTypeI32},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.size, tt.kind.Size())
			assert.Equal(t, tt.size, tt.kind.Align())
			assert.Equal(t, tt.cname, tt.kind.CName())
			assert.Equal(t, tt.vt, tt.kind.ValueType())
			assert.NotNil(t, tt.kind.WIT())
		})
	}
}

func TestKind_Classes(t *testing.T) {
	assert.True(t, KindF64.IsPrimitive())
	assert.False(t, KindPointer.IsPrimitive())
	assert.True(t, KindString.IsNativeOnly())
	assert.True(t, KindList.IsNativeOnly())
	assert.False(t, KindStruct.IsNativeOnly())
	assert.True(t, KindS16.IsSigned())
	assert.False(t, KindU16.IsSigned())
	assert.True(t, KindF32.IsFloat())
	assert.Equal(t, "unknown", Kind(200).String())
}

func TestType_CName(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want string
	}{
		{"scalar", S32, "int32_t"},
		{"borrowed cstring", CString, "const char*"},
		{"owned cstring", OwnedCString, "char*"},
		{"borrowed array", Array(KindS32, AccessBorrowed), "const int32_t*"},
		{"mutable array", Array(KindS32, AccessMutable), "int32_t*"},
		{"owned bytes", OwnedBytes, "uint8_t*"},
		{"out slot", Out(KindF64), "double*"},
		{"struct pointer", StructPtr(pointDef, AccessMutable), "ffi_point*"},
		{"struct value", StructValue(pointDef), "ffi_point"},
		{"handle", Handle("counter", AccessBorrowed), "ffi_counter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.CName())
		})
	}
}

func TestType_WIT(t *testing.T) {
	w := StructValue(pointDef).WIT()
	td, ok := w.(*wit.TypeDef)
	require.True(t, ok)
	require.NotNil(t, td.Name)
	assert.Equal(t, "point", *td.Name)
	rec, ok := td.Kind.(*wit.Record)
	require.True(t, ok)
	require.Len(t, rec.Fields, 2)
	assert.Equal(t, "x", rec.Fields[0].Name)

	_, ok = CString.WIT().(wit.U32)
	assert.True(t, ok, "addresses are u32")
}

func TestSignature_Lower(t *testing.T) {
	t.Run("struct params flatten", func(t *testing.T) {
		sig := Signature{
			Params: []Param{{"a", StructValue(pointDef)}, {"b", StructValue(pointDef)}},
			Result: Returns(F64),
		}
		params, results := sig.Lower()
		assert.Equal(t, []api.ValueType{api.ValueTypeF64, api.ValueTypeF64, api.ValueTypeF64, api.ValueTypeF64}, params)
		assert.Equal(t, []api.ValueType{api.ValueTypeF64}, results)
		assert.Equal(t, []string{"a_x", "a_y", "b_x", "b_y"}, sig.ParamNames())
	})

	t.Run("struct result uses retptr", func(t *testing.T) {
		sig := Signature{
			Params: []Param{{"x", F64}, {"y", F64}},
			Result: Returns(StructValue(pointDef)),
		}
		require.True(t, sig.RetPtr())
		params, results := sig.Lower()
		assert.Equal(t, []api.ValueType{api.ValueTypeF64, api.ValueTypeF64, api.ValueTypeI32}, params)
		assert.Empty(t, results)
		assert.Equal(t, "retptr", sig.ParamNames()[2])
	})

	t.Run("void", func(t *testing.T) {
		sig := Signature{Params: []Param{{"s", OwnedCString}}}
		params, results := sig.Lower()
		assert.Equal(t, []api.ValueType{api.ValueTypeI32}, params)
		assert.Empty(t, results)
	})
}

func TestSignature_CDecl(t *testing.T) {
	sig := Signature{
		Params: []Param{{"values", Array(KindS32, AccessBorrowed)}, {"len", U32}},
		Result: Returns(S64),
	}
	assert.Equal(t, "int64_t sum(const int32_t* values, uint32_t len)", sig.CDecl("sum"))
	assert.Equal(t, "uint32_t get_version(void)", Signature{Result: Returns(U32)}.CDecl("get_version"))
	assert.Equal(t, "(values: []s32, len: u32) -> s64", sig.String())
}

func TestSignature_Validate(t *testing.T) {
	withString := &StructDef{Name: "user", Fields: []Field{{Name: "name", Kind: KindString}}}

	tests := []struct {
		name   string
		symbol string
		sig    Signature
		kind   errors.Kind
	}{
		{
			name:   "string by value",
			symbol: "greet",
			sig:    Signature{Params: []Param{{"name", Scalar(KindString)}}},
			kind:   errors.KindUnsupported,
		},
		{
			name:   "list result",
			symbol: "items",
			sig:    Signature{Result: Returns(Scalar(KindList))},
			kind:   errors.KindUnsupported,
		},
		{
			name:   "struct with buffer field",
			symbol: "user_new",
			sig:    Signature{Result: Returns(StructValue(withString))},
			kind:   errors.KindUnsupported,
		},
		{
			name:   "array without length",
			symbol: "sum",
			sig:    Signature{Params: []Param{{"values", Array(KindS32, AccessBorrowed)}}},
			kind:   errors.KindInvalidInput,
		},
		{
			name:   "borrowed pointer result",
			symbol: "peek",
			sig:    Signature{Result: Returns(CString)},
			kind:   errors.KindInvalidInput,
		},
		{
			name:   "borrowed handle result",
			symbol: "counter_peek",
			sig:    Signature{Result: Returns(Handle("counter", AccessBorrowed))},
			kind:   errors.KindInvalidInput,
		},
		{
			name:   "duplicate params",
			symbol: "add",
			sig:    Signature{Params: []Param{{"a", S32}, {"a", S32}}},
			kind:   errors.KindInvalidInput,
		},
		{
			name:   "mangled symbol",
			symbol: "Add::i32",
			sig:    Signature{},
			kind:   errors.KindInvalidInput,
		},
		{
			name:   "untyped pointer",
			symbol: "raw",
			sig:    Signature{Params: []Param{{"p", Scalar(KindPointer)}}},
			kind:   errors.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.Validate(tt.symbol)
			require.Error(t, err)
			kind, ok := errors.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind, err.Error())
		})
	}

	t.Run("valid", func(t *testing.T) {
		sig := Signature{
			Params: []Param{{"p", StructPtr(pointDef, AccessMutable)}, {"dx", F64}, {"dy", F64}},
			Result: Returns(S32),
		}
		assert.NoError(t, sig.Validate("point_translate"))
	})
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint32(8), AlignUp(1, 8))
	assert.Equal(t, uint32(16), AlignUp(16, 8))
	assert.Equal(t, uint32(5), AlignUp(5, 0))
	assert.Equal(t, uint32(5), AlignUp(5, 1))

	_, ok := CheckedAdd(^uint32(0), 1)
	assert.False(t, ok)
	_, ok = CheckedMul(1<<20, 1<<20)
	assert.False(t, ok)
	v, ok := CheckedMul(4, 10)
	assert.True(t, ok)
	assert.Equal(t, uint32(40), v)
}
