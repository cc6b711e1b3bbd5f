package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/birdrun/errors"
	"github.com/caffeineduck/birdrun/executor"
)

var replCmd = &cobra.Command{
	Use:   "repl [artifact]",
	Short: "Re-run an artifact interactively",
	Long: `Start an interactive loop around one artifact. Rebuild the program in
another terminal, then press Enter here to run it again; the output log is
reset before every run.

Commands:
  <Enter>, run     run the current artifact
  load <path>      switch to another artifact
  inspect          show imports and exports
  help             show this list
  exit, quit       leave (or press Ctrl+D)

Features:
  - Command history (up/down arrows)
  - History search (Ctrl+R)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepl,
}

func init() {
	addRunFlags(replCmd)
	replCmd.Flags().String("history", "", "History file path (default: ~/.birdrun_history)")
	rootCmd.AddCommand(replCmd)
}

const replHelp = `Commands: <Enter>/run, load <path>, inspect, help, exit`

// replSession holds the state one REPL carries between lines.
type replSession struct {
	exec     *executor.Executor
	artifact string
	out      io.Writer
	errOut   io.Writer
}

// handle executes one input line and reports whether the loop should end.
func (s *replSession) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		fmt.Fprintln(s.out, replHelp)
	case "load":
		if arg == "" {
			fmt.Fprintln(s.errOut, paint(s.errOut, errorStyle, "load: path required"))
			return false
		}
		s.artifact = arg
		fmt.Fprintf(s.out, "artifact: %s\n", s.artifact)
	case "inspect":
		wasm, err := os.ReadFile(s.artifact)
		if err != nil {
			printError(s.errOut, errors.ArtifactNotFound(s.artifact, err))
			return false
		}
		surface, err := s.exec.Inspect(ctx, wasm)
		if err != nil {
			printError(s.errOut, err)
			return false
		}
		printSurface(s.out, surface)
	case "", "run":
		s.run(ctx)
	default:
		fmt.Fprintf(s.errOut, "unknown command %q\n%s\n", cmd, replHelp)
	}
	return false
}

func (s *replSession) run(ctx context.Context) {
	result := s.exec.Run(ctx, s.artifact, settings.RunOptions(s.out)...)
	if result.Error != nil {
		printError(s.errOut, result.Error)
		return
	}
	summary := fmt.Sprintf("ok: %d line(s) in %v", result.Calls, result.Duration.Round(time.Microsecond))
	fmt.Fprintln(s.errOut, paint(s.errOut, okStyle, summary))
}

func runRepl(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".birdrun_history")
	}

	exec, err := newExecutor()
	if err != nil {
		return err
	}
	defer exec.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "birdrun> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	session := &replSession{
		exec:     exec,
		artifact: artifactPath(args),
		out:      rl.Stdout(),
		errOut:   rl.Stderr(),
	}

	fmt.Fprintf(session.out, "birdrun repl - artifact %s\n%s\n", session.artifact, replHelp)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if session.handle(cmd.Context(), line) {
			break
		}
	}
	return nil
}
