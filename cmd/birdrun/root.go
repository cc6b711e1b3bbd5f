package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/birdrun/config"
	"github.com/caffeineduck/birdrun/errors"
	"github.com/caffeineduck/birdrun/executor"
)

var rootCmd = &cobra.Command{
	Use:   "birdrun [artifact]",
	Short: "Test harness for compiled Bird WebAssembly programs",
	Long: `birdrun - run a compiled Bird program and record what it prints.

The artifact (default ./output.wasm) is linked against the env host functions
print_i32, print_f64 and print_str, then its main export is called once.
Every printed value becomes one line of the output log (default ./output.txt)
and is mirrored to stdout.

Exit status:
  0  success                 4  no callable main export
  2  artifact not found      5  trap while running
  3  instantiation failed    6  output log write failed
  1  anything else`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
	RunE:              runRun, // Default to run command behavior
}

// Resolved once per invocation by loadSettings.
var (
	settings = config.Defaults()
	logger   = zap.NewNop()
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
	}
	_ = logger.Sync()
	os.Exit(errors.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, config.DefaultLogLevel, "Diagnostics level: debug, info, warn, error")
	rootCmd.PersistentFlags().String(config.KeyDiagLog, "", "Write diagnostics to a rotated file instead of stderr")
	rootCmd.PersistentFlags().Bool(config.KeyNoCache, false, "Disable compilation cache")
	rootCmd.PersistentFlags().String(config.KeyMemory, config.DefaultMemory, "Memory limit: 1mb, 16mb, 64mb, 256mb, 1gb")

	// Add run-specific flags to root (for default command)
	addRunFlags(rootCmd)
}

func loadSettings(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return err
	}

	l, err := newLogger(cfg.LogLevel, cfg.DiagLog, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	settings = cfg
	logger = l
	logger.Debug("settings loaded", zap.Any("settings", settings))
	return nil
}

func artifactPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return settings.Artifact
}

func newExecutor() (*executor.Executor, error) {
	opts := append(settings.ExecutorOptions(), executor.WithLogger(logger))
	return executor.New(opts...)
}
