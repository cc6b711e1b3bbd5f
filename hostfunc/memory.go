package hostfunc

import (
	"math"
	"reflect"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/caffeineduck/birdrun/errors"
)

// MemoryRef is a late-bound handle to an instance's linear memory. It is
// empty until Bind is called after instantiation.
type MemoryRef struct {
	mem api.Memory
}

// Bind binds mem. A module without linear memory leaves the ref empty.
func (r *MemoryRef) Bind(mem api.Memory) {
	if !present(mem) {
		return
	}
	r.mem = mem
}

// Load returns the bound memory, or nil.
func (r *MemoryRef) Load() api.Memory {
	return r.mem
}

func (r *MemoryRef) Bound() bool {
	return r.mem != nil
}

// present reports whether mem is backed by a memory instance. Modules
// without linear memory still return a non-nil api.Memory holding a nil
// pointer.
func present(mem api.Memory) bool {
	if mem == nil {
		return false
	}
	v := reflect.ValueOf(mem)
	return v.Kind() != reflect.Pointer || !v.IsNil()
}

// ReadCString decodes bytes from ptr up to the first NUL. Each byte is one
// code point, so 0x80-0xFF map to U+0080-U+00FF. Running off the end of
// memory before a NUL is an out-of-bounds error.
func ReadCString(mem api.Memory, ptr uint32) (string, error) {
	var b strings.Builder
	for off := ptr; ; off++ {
		c, ok := mem.ReadByte(off)
		if !ok {
			return "", errors.OutOfBounds(off, uint64(mem.Size()))
		}
		if c == 0 {
			return b.String(), nil
		}
		b.WriteRune(rune(c))
		if off == math.MaxUint32 {
			return "", errors.OutOfBounds(off, uint64(mem.Size()))
		}
	}
}
