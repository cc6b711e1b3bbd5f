// Package hostfunc implements the env import namespace offered to compiled
// programs.
//
// A program prints by calling one of three imports, each of which renders
// its argument as one line and hands it to a [Recorder]:
//
//	env.print_i32 (i32)  base-10 signed integer
//	env.print_f64 (f64)  JavaScript number rendering, see [FormatF64]
//	env.print_str (i32)  NUL-terminated string at a linear memory offset
//
// # Wiring
//
// An [Env] carries one run's recorder and memory handle. A [Registry] built
// from it is instantiated into a wazero runtime before the program:
//
//	env := hostfunc.NewEnv(logSink)
//	reg := hostfunc.NewRegistry(env)
//	if _, err := reg.Instantiate(ctx, rt); err != nil {
//	    return err
//	}
//	mod, err := rt.InstantiateModule(ctx, compiled, cfg)
//	...
//	env.Memory().Bind(mod.Memory())
//
// Host functions report failure by panicking with a
// [github.com/caffeineduck/birdrun/errors.Error]; wazero unwinds the guest
// and returns that error from the call that entered it.
package hostfunc
