package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/birdrun/config"
)

var runCmd = &cobra.Command{
	Use:   "run [artifact]",
	Short: "Run an artifact once",
	Long: `Run a compiled program once and record its output.

The output log is truncated before the artifact is read, so it only ever
holds the lines of the latest run. Examples:
  birdrun run
  birdrun run build/output.wasm -o build/output.txt
  birdrun run --quiet --timeout 5s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(config.KeyLog, "o", config.DefaultLog, "Output log path")
	cmd.Flags().BoolP(config.KeyQuiet, "q", false, "Do not mirror output to stdout")
	cmd.Flags().Bool(config.KeySync, false, "Flush the log to disk after every line")
	cmd.Flags().Duration(config.KeyTimeout, 0, "Abort the run after this long (0 = no limit)")
}

func runRun(cmd *cobra.Command, args []string) error {
	exec, err := newExecutor()
	if err != nil {
		return err
	}
	defer exec.Close()

	artifact := artifactPath(args)
	result := exec.Run(cmd.Context(), artifact, settings.RunOptions(cmd.OutOrStdout())...)

	logger.Info("run finished",
		zap.String("artifact", artifact),
		zap.String("state", result.State.String()),
		zap.Int("calls", result.Calls),
		zap.Duration("duration", result.Duration))

	return result.Error
}
