package harness

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"testing"

	"github.com/caffeineduck/birdrun/errors"
	"github.com/caffeineduck/birdrun/internal/modbuild"
)

func program() []byte {
	b := modbuild.New()
	printI32, printF64, printStr := b.EnvImports()
	b.Memory(1, "memory")
	b.Data(16, []byte("ok\x00"))
	b.Export("main", b.Func(nil, nil, modbuild.NewCode().
		I32Const(42).Call(printI32).
		F64Const(3.0).Call(printF64).
		I32Const(16).Call(printStr)))
	return b.Bytes()
}

func TestRunConventionalPaths(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.WriteFile(DefaultArtifact, program(), 0o644); err != nil {
		t.Fatal(err)
	}

	var console bytes.Buffer
	result := Run(context.Background(), Config{Console: &console})
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}

	content, err := os.ReadFile("output.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "42\n3\nok\n" {
		t.Errorf("log = %q, want %q", content, "42\n3\nok\n")
	}
	if console.String() != "42\n3\nok\n" {
		t.Errorf("console = %q", console.String())
	}
}

func TestRunMissingArtifact(t *testing.T) {
	t.Chdir(t.TempDir())

	result := Run(context.Background(), Config{Console: io.Discard})
	if !stderrors.Is(result.Error, errors.ErrArtifactNotFound) {
		t.Fatalf("expected artifact_not_found, got %v", result.Error)
	}
	// The log is still reset.
	if _, err := os.Stat("output.txt"); err != nil {
		t.Errorf("log not created: %v", err)
	}
}
