package executor

import (
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/caffeineduck/birdrun/hostfunc"
)

// DefaultLogFile is where a run records its output unless told otherwise.
const DefaultLogFile = "output.txt"

// Option configures a single run.
type Option func(*runConfig)

type runConfig struct {
	logFile  string
	recorder hostfunc.Recorder
	console  io.Writer
	sync     bool
	timeout  time.Duration
}

func defaultRunConfig() runConfig {
	return runConfig{
		logFile: DefaultLogFile,
	}
}

// WithLogFile sets the path of the output log. The file is created or
// truncated at the start of the run.
func WithLogFile(path string) Option {
	return func(c *runConfig) {
		c.logFile = path
	}
}

// WithRecorder records into rec instead of a log file. If rec has a
// Reset() error method it is called before the artifact is loaded.
func WithRecorder(rec hostfunc.Recorder) Option {
	return func(c *runConfig) {
		c.recorder = rec
	}
}

// WithConsole mirrors each recorded line to w. Ignored with WithRecorder.
func WithConsole(w io.Writer) Option {
	return func(c *runConfig) {
		c.console = w
	}
}

// WithSync fsyncs the log after every line.
func WithSync(enabled bool) Option {
	return func(c *runConfig) {
		c.sync = enabled
	}
}

// WithTimeout bounds instantiation and the entry call together.
// Zero, the default, means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	diskCache        bool
	cacheDir         string
	memoryLimitPages uint32 // Max memory pages (each page = 64KB), 0 = default (4GB)
	logger           *zap.Logger
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{}
}

// WithDiskCache persists compiled code between processes.
// Optionally provide a custom directory; otherwise uses ~/.cache/birdrun or
// XDG_CACHE_HOME/birdrun.
//
// Examples:
//
//	executor.New(executor.WithDiskCache())            // default dir
//	executor.New(executor.WithDiskCache("/tmp/cache")) // custom dir
func WithDiskCache(dir ...string) ExecutorOption {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithMemoryLimit caps the linear memory a module may declare or grow to.
// Each page is 64KB. Default is 0 (no limit, up to 4GB).
func WithMemoryLimit(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// WithLogger sets the diagnostics logger. The default discards everything.
func WithLogger(logger *zap.Logger) ExecutorOption {
	return func(c *executorConfig) {
		c.logger = logger
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit1MB   uint32 = 16    // 1 MB
	MemoryLimit16MB  uint32 = 256   // 16 MB
	MemoryLimit64MB  uint32 = 1024  // 64 MB
	MemoryLimit256MB uint32 = 4096  // 256 MB
	MemoryLimit1GB   uint32 = 16384 // 1 GB
)
