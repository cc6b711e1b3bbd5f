package executor

import (
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/caffeineduck/birdrun/hostfunc"
)

// Import is one function or memory a module expects from its host.
type Import struct {
	Module    string `json:"module"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Satisfied bool   `json:"satisfied"`
}

// Surface is what a module imports and exports.
type Surface struct {
	Digest     string   `json:"digest"`
	Imports    []Import `json:"imports"`
	Functions  []string `json:"functions"`
	Memories   []string `json:"memories"`
	Entry      bool     `json:"entry"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// Runnable reports whether the module links against the env namespace and
// exports a zero-argument entry point.
func (s Surface) Runnable() bool {
	return s.Entry && len(s.Unresolved) == 0
}

func describe(compiled wazero.CompiledModule, digest string) Surface {
	s := Surface{Digest: digest}

	registry := hostfunc.NewRegistry(hostfunc.NewEnv(nil))
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		imp := Import{Module: module, Name: name, Kind: "func"}
		imp.Satisfied = len(registry.Missing([]api.FunctionDefinition{def})) == 0
		if !imp.Satisfied {
			s.Unresolved = append(s.Unresolved, module+"."+name)
		}
		s.Imports = append(s.Imports, imp)
	}
	for _, def := range compiled.ImportedMemories() {
		module, name, _ := def.Import()
		s.Imports = append(s.Imports, Import{Module: module, Name: name, Kind: "memory"})
		s.Unresolved = append(s.Unresolved, module+"."+name)
	}

	for name, def := range compiled.ExportedFunctions() {
		s.Functions = append(s.Functions, name)
		if name == EntryPoint && len(def.ParamTypes()) == 0 {
			s.Entry = true
		}
	}
	for name := range compiled.ExportedMemories() {
		s.Memories = append(s.Memories, name)
	}
	slices.Sort(s.Functions)
	slices.Sort(s.Memories)
	slices.Sort(s.Unresolved)

	return s
}
