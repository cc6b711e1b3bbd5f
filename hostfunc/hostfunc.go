package hostfunc

import (
	"context"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Namespace is the import module every host function is exported under.
const Namespace = "env"

const (
	NamePrintI32 = "print_i32"
	NamePrintF64 = "print_f64"
	NamePrintStr = "print_str"
)

// Func is a host function together with its wasm signature.
type Func struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Call    api.GoModuleFunc
}

// Registry holds the host functions offered to a module under [Namespace].
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns a registry holding the print functions bound to env.
func NewRegistry(env *Env) *Registry {
	r := &Registry{funcs: make(map[string]Func)}

	r.Register(Func{
		Name:   NamePrintI32,
		Params: []api.ValueType{api.ValueTypeI32},
		Call: func(_ context.Context, _ api.Module, stack []uint64) {
			if err := env.PrintI32(api.DecodeI32(stack[0])); err != nil {
				panic(err)
			}
		},
	})
	r.Register(Func{
		Name:   NamePrintF64,
		Params: []api.ValueType{api.ValueTypeF64},
		Call: func(_ context.Context, _ api.Module, stack []uint64) {
			if err := env.PrintF64(api.DecodeF64(stack[0])); err != nil {
				panic(err)
			}
		},
	})
	r.Register(Func{
		Name:   NamePrintStr,
		Params: []api.ValueType{api.ValueTypeI32},
		Call: func(_ context.Context, caller api.Module, stack []uint64) {
			var mem api.Memory
			if caller != nil {
				mem = caller.Memory()
			}
			if err := env.PrintStr(mem, api.DecodeU32(stack[0])); err != nil {
				panic(err)
			}
		},
	})

	return r
}

func (r *Registry) Register(fn Func) {
	r.mu.Lock()
	r.funcs[fn.Name] = fn
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	return fn, ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Instantiate exports every registered function as the host module
// [Namespace] in rt.
func (r *Registry) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(Namespace)
	for _, name := range r.List() {
		fn, _ := r.Get(name)
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(fn.Call, fn.Params, fn.Results).
			Export(fn.Name)
	}
	return builder.Instantiate(ctx)
}

// Missing returns the function imports, as "module.name", that the registry
// cannot satisfy. Non-function imports are not reported here.
func (r *Registry) Missing(imports []api.FunctionDefinition) []string {
	var missing []string
	for _, def := range imports {
		module, name, ok := def.Import()
		if !ok {
			continue
		}
		if module == Namespace {
			if _, found := r.Get(name); found {
				continue
			}
		}
		missing = append(missing, module+"."+name)
	}
	return missing
}
