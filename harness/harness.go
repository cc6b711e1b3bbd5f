// Package harness runs one artifact the way the compiler's test suite
// expects: ./output.wasm in, ./output.txt out, every line echoed to stdout.
package harness

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/caffeineduck/birdrun/executor"
)

// DefaultArtifact is where the build pipeline leaves the compiled program.
const DefaultArtifact = "output.wasm"

type Config struct {
	Artifact string
	Log      string
	Console  io.Writer
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Artifact: DefaultArtifact,
		Log:      executor.DefaultLogFile,
		Console:  os.Stdout,
	}
}

// Run executes cfg.Artifact once with a throwaway executor. Empty fields
// take their DefaultConfig values; use io.Discard to silence the console.
func Run(ctx context.Context, cfg Config) executor.Result {
	def := DefaultConfig()
	if cfg.Artifact == "" {
		cfg.Artifact = def.Artifact
	}
	if cfg.Log == "" {
		cfg.Log = def.Log
	}
	if cfg.Console == nil {
		cfg.Console = def.Console
	}

	exec, err := executor.New()
	if err != nil {
		return executor.Result{State: executor.StateFailed, Error: err}
	}
	defer exec.Close()

	return exec.Run(ctx, cfg.Artifact,
		executor.WithLogFile(cfg.Log),
		executor.WithConsole(cfg.Console),
		executor.WithTimeout(cfg.Timeout))
}
