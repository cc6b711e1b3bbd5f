package hostfunc

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/caffeineduck/birdrun/errors"
)

// Recorder receives one rendered value per host call.
type Recorder interface {
	Record(line string) error
}

// Env is the per-run state behind the env namespace. One Env serves exactly
// one module instance and is not shared between runs.
type Env struct {
	rec    Recorder
	memory MemoryRef
	calls  int
}

func NewEnv(rec Recorder) *Env {
	return &Env{rec: rec}
}

// Memory returns the cell print_str reads through. The executor binds it
// once the instance exists.
func (e *Env) Memory() *MemoryRef {
	return &e.memory
}

// Calls returns how many values were recorded.
func (e *Env) Calls() int {
	return e.calls
}

func (e *Env) PrintI32(v int32) error {
	return e.record(FormatI32(v))
}

func (e *Env) PrintF64(v float64) error {
	return e.record(FormatF64(v))
}

// PrintStr records the NUL-terminated string at ptr. It reads the bound
// memory, falling back to caller when nothing is bound yet. A module with
// no linear memory traps.
func (e *Env) PrintStr(caller api.Memory, ptr uint32) error {
	mem := e.memory.Load()
	if mem == nil && present(caller) {
		mem = caller
	}
	if mem == nil {
		return errors.ExecutionTrap("print_str: module has no linear memory", nil)
	}
	s, err := ReadCString(mem, ptr)
	if err != nil {
		return err
	}
	return e.record(s)
}

func (e *Env) record(line string) error {
	if err := e.rec.Record(line); err != nil {
		return err
	}
	e.calls++
	return nil
}
