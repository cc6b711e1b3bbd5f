// Package errors provides the structured failure taxonomy for harness runs.
//
// Every failure a run can end in is an [*Error] carrying the [Phase] it
// happened in and its [Kind]:
//
//	[load] artifact_not_found: read ./output.wasm (caused by: open ./output.wasm: no such file or directory)
//	[run] execution_trap: call main (caused by: wasm error: unreachable ...)
//
// Match on kind with the sentinels, regardless of phase:
//
//	if errors.Is(err, harnesserrors.ErrExecutionTrap) { ... }
//
// None of these errors is recoverable within a run. [ExitCode] turns them
// into distinct process exit statuses for the CLI.
package errors
