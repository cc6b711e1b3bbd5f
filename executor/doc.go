// Package executor runs compiled programs and captures what they print.
//
// # Overview
//
// A run loads a core wasm module, links it against the env host functions
// from [github.com/caffeineduck/birdrun/hostfunc], instantiates it and
// calls its main export once. Every value the program prints becomes one
// line of the output log, in call order.
//
// Runs move through [State] values idle, artifact_loaded, instantiating,
// running and then completed or failed. The output log is truncated before
// the artifact is read, so a failed load still leaves an empty log behind.
//
// # Basic Usage
//
//	exec, err := executor.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	result := exec.Run(ctx, "output.wasm",
//	    executor.WithLogFile("output.txt"),
//	    executor.WithConsole(os.Stdout))
//	if result.Error != nil {
//	    os.Exit(errors.ExitCode(result.Error))
//	}
//
// # Isolation
//
// Each run gets its own wazero runtime, host module and log. Compiled code
// is shared through one compilation cache, so an Executor may serve many
// concurrent runs.
package executor
