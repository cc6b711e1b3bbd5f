package hostfunc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/caffeineduck/birdrun/errors"
	"github.com/caffeineduck/birdrun/internal/modbuild"
)

// newMemory instantiates a module with one page of exported memory and the
// given data segments, returning its memory.
func newMemory(t *testing.T, data map[uint32][]byte) api.Memory {
	t.Helper()
	ctx := context.Background()

	b := modbuild.New()
	b.Memory(1, "memory")
	for off, d := range data {
		b.Data(off, d)
	}

	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	mod, err := rt.Instantiate(ctx, b.Bytes())
	require.NoError(t, err)
	require.NotNil(t, mod.Memory())
	return mod.Memory()
}

func TestReadCString(t *testing.T) {
	mem := newMemory(t, map[uint32][]byte{
		16:  []byte("ok\x00"),
		32:  {0x00},
		48:  {'c', 'a', 'f', 0xE9, 0x00},
		100: []byte("a\x00b\x00"),
	})

	tests := []struct {
		name string
		ptr  uint32
		want string
	}{
		{"ascii", 16, "ok"},
		{"empty", 32, ""},
		{"latin1", 48, "café"},
		{"stops at first nul", 100, "a"},
		{"after first nul", 102, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCString(mem, tt.ptr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCStringIsIdempotent(t *testing.T) {
	mem := newMemory(t, map[uint32][]byte{0: []byte("same\x00")})

	first, err := ReadCString(mem, 0)
	require.NoError(t, err)
	second, err := ReadCString(mem, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReadCStringOutOfBounds(t *testing.T) {
	mem := newMemory(t, nil)
	size := mem.Size()

	// No terminator before the end of memory.
	require.True(t, mem.Write(size-2, []byte("ab")))
	_, err := ReadCString(mem, size-2)
	require.Error(t, err)
	assert.Equal(t, errors.KindOutOfBounds, errors.KindOf(err))
	assert.Contains(t, err.Error(), "offset 65536")

	_, err = ReadCString(mem, size+10)
	assert.Equal(t, errors.KindOutOfBounds, errors.KindOf(err))
}

func TestMemoryRefBinding(t *testing.T) {
	var ref MemoryRef
	assert.False(t, ref.Bound())
	assert.Nil(t, ref.Load())

	mem := newMemory(t, nil)
	ref.Bind(mem)
	assert.True(t, ref.Bound())
	assert.Equal(t, mem, ref.Load())
}
