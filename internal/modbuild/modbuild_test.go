package modbuild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
)

func TestLEB128(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*buffer)
		want []byte
	}{
		{"u32 zero", func(b *buffer) { b.u32(0) }, []byte{0x00}},
		{"u32 624485", func(b *buffer) { b.u32(624485) }, []byte{0xE5, 0x8E, 0x26}},
		{"i32 -1", func(b *buffer) { b.i32(-1) }, []byte{0x7F}},
		{"i32 42", func(b *buffer) { b.i32(42) }, []byte{0x2A}},
		{"i32 -123456", func(b *buffer) { b.i32(-123456) }, []byte{0xC0, 0xBB, 0x78}},
		{"i32 64", func(b *buffer) { b.i32(64) }, []byte{0xC0, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &buffer{}
			tt.fn(b)
			assert.Equal(t, tt.want, b.bytes)
		})
	}
}

func TestBuiltModuleCompiles(t *testing.T) {
	ctx := context.Background()

	b := New()
	printI32, printF64, printStr := b.EnvImports()
	b.Memory(1, "memory")
	b.Data(16, []byte("ok\x00"))
	main := b.Func(nil, nil, NewCode().
		I32Const(42).Call(printI32).
		F64Const(3).Call(printF64).
		I32Const(16).Call(printStr))
	b.Export("main", main)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, b.Bytes())
	require.NoError(t, err)

	imports := compiled.ImportedFunctions()
	require.Len(t, imports, 3)
	for i, want := range []string{"print_i32", "print_f64", "print_str"} {
		mod, name, ok := imports[i].Import()
		assert.True(t, ok)
		assert.Equal(t, "env", mod)
		assert.Equal(t, want, name)
	}

	_, ok := compiled.ExportedFunctions()["main"]
	assert.True(t, ok)
	_, ok = compiled.ExportedMemories()["memory"]
	assert.True(t, ok)
}

func TestImportAfterFuncPanics(t *testing.T) {
	b := New()
	b.Func(nil, nil, nil)
	assert.Panics(t, func() {
		b.Import("env", "late", nil, nil)
	})
}
