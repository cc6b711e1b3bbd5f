// Package modbuild assembles small core wasm binaries in memory, so tests and
// benchmarks can exercise the harness without a compiler in the loop.
//
//	b := modbuild.New()
//	printI32 := b.Import("env", "print_i32", []modbuild.ValType{modbuild.I32}, nil)
//	main := b.Func(nil, nil, modbuild.NewCode().I32Const(42).Call(printI32))
//	b.Export("main", main)
//	wasm := b.Bytes()
package modbuild

import "slices"

// ValType is a wasm value type.
type ValType byte

const (
	I32 ValType = 0x7F
	I64 ValType = 0x7E
	F32 ValType = 0x7D
	F64 ValType = 0x7C
)

const (
	sectionType   = 1
	sectionImport = 2
	sectionFunc   = 3
	sectionMemory = 5
	sectionExport = 7
	sectionStart  = 8
	sectionCode   = 10
	sectionData   = 11

	kindFunc   = 0x00
	kindMemory = 0x02

	funcTypeMarker = 0x60
)

type funcType struct {
	params  []ValType
	results []ValType
}

type importFunc struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	body    []byte
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type segment struct {
	offset uint32
	data   []byte
}

// Builder accumulates the sections of one module. Imports must be declared
// before any function is defined, because imported functions take the low
// function indices.
type Builder struct {
	types   []funcType
	imports []importFunc
	funcs   []function
	exports []export
	data    []segment
	memory  *uint32
	start   *uint32
}

func New() *Builder {
	return &Builder{}
}

func (b *Builder) typeIndex(params, results []ValType) uint32 {
	for i, t := range b.types {
		if slices.Equal(t.params, params) && slices.Equal(t.results, results) {
			return uint32(i)
		}
	}
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1)
}

// Import declares an imported function and returns its function index.
func (b *Builder) Import(module, name string, params, results []ValType) uint32 {
	if len(b.funcs) > 0 {
		panic("modbuild: imports must precede function definitions")
	}
	b.imports = append(b.imports, importFunc{
		module:  module,
		name:    name,
		typeIdx: b.typeIndex(params, results),
	})
	return uint32(len(b.imports) - 1)
}

// Func defines a function with the given body and returns its function index.
// The body is terminated with end automatically.
func (b *Builder) Func(params, results []ValType, body *Code) uint32 {
	var code []byte
	if body != nil {
		code = body.buf.bytes
	}
	b.funcs = append(b.funcs, function{
		typeIdx: b.typeIndex(params, results),
		body:    code,
	})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// Export exports a function under name.
func (b *Builder) Export(name string, funcIdx uint32) {
	b.exports = append(b.exports, export{name: name, kind: kindFunc, idx: funcIdx})
}

// Memory defines a memory of the given initial page count. If exportName is
// non-empty the memory is exported under it.
func (b *Builder) Memory(pages uint32, exportName string) {
	b.memory = &pages
	if exportName != "" {
		b.exports = append(b.exports, export{name: exportName, kind: kindMemory, idx: 0})
	}
}

// Data places an active data segment at offset in memory 0.
func (b *Builder) Data(offset uint32, data []byte) {
	b.data = append(b.data, segment{offset: offset, data: data})
}

// Start marks funcIdx as the module's start function.
func (b *Builder) Start(funcIdx uint32) {
	b.start = &funcIdx
}

// Bytes encodes the module.
func (b *Builder) Bytes() []byte {
	out := &buffer{}
	out.putBytes([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}) // magic + version

	if len(b.types) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(b.types)))
		for _, t := range b.types {
			sec.put(funcTypeMarker)
			sec.u32(uint32(len(t.params)))
			for _, p := range t.params {
				sec.put(byte(p))
			}
			sec.u32(uint32(len(t.results)))
			for _, r := range t.results {
				sec.put(byte(r))
			}
		}
		out.section(sectionType, sec)
	}

	if len(b.imports) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(b.imports)))
		for _, imp := range b.imports {
			sec.name(imp.module)
			sec.name(imp.name)
			sec.put(kindFunc)
			sec.u32(imp.typeIdx)
		}
		out.section(sectionImport, sec)
	}

	if len(b.funcs) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(b.funcs)))
		for _, f := range b.funcs {
			sec.u32(f.typeIdx)
		}
		out.section(sectionFunc, sec)
	}

	if b.memory != nil {
		sec := &buffer{}
		sec.u32(1)
		sec.put(0x00) // limits: min only
		sec.u32(*b.memory)
		out.section(sectionMemory, sec)
	}

	if len(b.exports) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(b.exports)))
		for _, e := range b.exports {
			sec.name(e.name)
			sec.put(e.kind)
			sec.u32(e.idx)
		}
		out.section(sectionExport, sec)
	}

	if b.start != nil {
		sec := &buffer{}
		sec.u32(*b.start)
		out.section(sectionStart, sec)
	}

	if len(b.funcs) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(b.funcs)))
		for _, f := range b.funcs {
			entry := &buffer{}
			entry.u32(0) // no local declarations
			entry.putBytes(f.body)
			entry.put(opEnd)
			sec.u32(uint32(len(entry.bytes)))
			sec.putBytes(entry.bytes)
		}
		out.section(sectionCode, sec)
	}

	if len(b.data) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(b.data)))
		for _, d := range b.data {
			sec.u32(0) // active, memory 0
			sec.put(opI32Const)
			sec.i32(int32(d.offset))
			sec.put(opEnd)
			sec.u32(uint32(len(d.data)))
			sec.putBytes(d.data)
		}
		out.section(sectionData, sec)
	}

	return out.bytes
}

// EnvImports declares env.print_i32, env.print_f64 and env.print_str, in
// that order, and returns their function indices.
func (b *Builder) EnvImports() (printI32, printF64, printStr uint32) {
	printI32 = b.Import("env", "print_i32", []ValType{I32}, nil)
	printF64 = b.Import("env", "print_f64", []ValType{F64}, nil)
	printStr = b.Import("env", "print_str", []ValType{I32}, nil)
	return printI32, printF64, printStr
}
