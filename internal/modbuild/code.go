package modbuild

const (
	opUnreachable = 0x00
	opLoop        = 0x03
	opEnd         = 0x0B
	opBr          = 0x0C
	opCall        = 0x10
	opDrop        = 0x1A
	opI32Const    = 0x41
	opF64Const    = 0x44

	blockTypeEmpty = 0x40
)

// Code is a function body under construction. Methods append one
// instruction each and return the receiver for chaining.
type Code struct {
	buf buffer
}

func NewCode() *Code {
	return &Code{}
}

func (c *Code) I32Const(v int32) *Code {
	c.buf.put(opI32Const)
	c.buf.i32(v)
	return c
}

func (c *Code) F64Const(v float64) *Code {
	c.buf.put(opF64Const)
	c.buf.f64(v)
	return c
}

func (c *Code) Call(funcIdx uint32) *Code {
	c.buf.put(opCall)
	c.buf.u32(funcIdx)
	return c
}

func (c *Code) Drop() *Code {
	c.buf.put(opDrop)
	return c
}

func (c *Code) Unreachable() *Code {
	c.buf.put(opUnreachable)
	return c
}

// Loop opens a loop block with no result. Close it with End.
func (c *Code) Loop() *Code {
	c.buf.put(opLoop)
	c.buf.put(blockTypeEmpty)
	return c
}

// Br branches to the enclosing block depth levels out.
func (c *Code) Br(depth uint32) *Code {
	c.buf.put(opBr)
	c.buf.u32(depth)
	return c
}

func (c *Code) End() *Code {
	c.buf.put(opEnd)
	return c
}
