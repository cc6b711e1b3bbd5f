package modbuild

import (
	"encoding/binary"
	"math"
)

type buffer struct {
	bytes []byte
}

func (b *buffer) put(v byte) {
	b.bytes = append(b.bytes, v)
}

func (b *buffer) putBytes(v []byte) {
	b.bytes = append(b.bytes, v...)
}

// u32 writes unsigned LEB128.
func (b *buffer) u32(v uint32) {
	for {
		byt := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			byt |= 0x80
		}
		b.put(byt)
		if v == 0 {
			break
		}
	}
}

// i32 writes signed LEB128.
func (b *buffer) i32(v int32) {
	for {
		byt := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && byt&0x40 == 0) || (v == -1 && byt&0x40 != 0) {
			b.put(byt)
			break
		}
		b.put(byt | 0x80)
	}
}

func (b *buffer) f64(v float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	b.putBytes(tmp[:])
}

func (b *buffer) name(s string) {
	b.u32(uint32(len(s)))
	b.putBytes([]byte(s))
}

func (b *buffer) section(id byte, content *buffer) {
	b.put(id)
	b.u32(uint32(len(content.bytes)))
	b.putBytes(content.bytes)
}
