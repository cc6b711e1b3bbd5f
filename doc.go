// Package birdrun is the execution harness for WebAssembly produced by the
// Bird compiler.
//
// # Overview
//
// A compiled program imports three host functions from the env namespace
// (print_i32, print_f64, print_str) and exports main. birdrun links those
// imports, calls main once, and writes every printed value as one line of
// an output log that the compiler's test runner diffs against an expected
// transcript.
//
// # Basic Usage
//
//	// Conventional paths: ./output.wasm in, ./output.txt out
//	result := harness.Run(ctx, harness.DefaultConfig())
//
//	// Explicit control
//	exec, _ := executor.New(executor.WithMemoryLimit(executor.MemoryLimit64MB))
//	defer exec.Close()
//	result = exec.Run(ctx, "build/output.wasm",
//	    executor.WithLogFile("build/output.txt"),
//	    executor.WithConsole(os.Stdout))
//	os.Exit(errors.ExitCode(result.Error))
//
// See the [executor], [hostfunc], [sink], and [errors] packages for detailed
// API documentation, and cmd/birdrun for the command-line tool.
package birdrun
