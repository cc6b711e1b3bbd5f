package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/birdrun/errors"
	"github.com/caffeineduck/birdrun/executor"
	"github.com/caffeineduck/birdrun/hostfunc"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [artifact]",
	Short: "Show what an artifact imports and exports",
	Long: `Compile an artifact without running it and report its import and export
surface. The command fails with the same exit status a run would when the
module imports something other than the env print functions or has no
callable main export.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("json", false, "Print the surface as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	path := artifactPath(args)
	wasm, err := os.ReadFile(path)
	if err != nil {
		return errors.ArtifactNotFound(path, err)
	}

	exec, err := newExecutor()
	if err != nil {
		return err
	}
	defer exec.Close()

	surface, err := exec.Inspect(cmd.Context(), wasm)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(surface); err != nil {
			return err
		}
	} else {
		printSurface(out, surface)
	}

	if len(surface.Unresolved) > 0 {
		return errors.MissingImports(surface.Unresolved)
	}
	if !surface.Entry {
		return errors.MissingEntryExport(executor.EntryPoint, "is not an exported zero-argument function")
	}
	return nil
}

func printSurface(w io.Writer, s executor.Surface) {
	fmt.Fprintf(w, "%s %s\n", paint(w, headingStyle, "digest:"), s.Digest)

	fmt.Fprintln(w, paint(w, headingStyle, "imports:"))
	if len(s.Imports) == 0 {
		fmt.Fprintln(w, paint(w, dimStyle, "  (none)"))
	}
	for _, imp := range s.Imports {
		status := paint(w, okStyle, "ok")
		if !imp.Satisfied {
			status = paint(w, errorStyle, "unresolved")
		}
		fmt.Fprintf(w, "  %-24s %-6s %s\n", imp.Module+"."+imp.Name, imp.Kind, status)
	}

	fmt.Fprintln(w, paint(w, headingStyle, "exports:"))
	for _, name := range s.Functions {
		fmt.Fprintf(w, "  %-24s func\n", name)
	}
	for _, name := range s.Memories {
		fmt.Fprintf(w, "  %-24s memory\n", name)
	}

	runnable := paint(w, okStyle, "yes")
	if !s.Runnable() {
		runnable = paint(w, errorStyle, "no")
	}
	fmt.Fprintf(w, "%s %s (host namespace %q)\n", paint(w, headingStyle, "runnable:"), runnable, hostfunc.Namespace)
}
