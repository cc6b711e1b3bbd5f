// Package config resolves harness settings from defaults, an optional YAML
// file, BIRDRUN_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/caffeineduck/birdrun/errors"
	"github.com/caffeineduck/birdrun/executor"
	"github.com/caffeineduck/birdrun/harness"
)

// EnvPrefix prefixes every environment variable, e.g. BIRDRUN_LOG_LEVEL.
const EnvPrefix = "BIRDRUN"

// Keys double as flag names.
const (
	KeyArtifact = "artifact"
	KeyLog      = "log"
	KeyQuiet    = "quiet"
	KeySync     = "sync"
	KeyTimeout  = "timeout"
	KeyNoCache  = "no-cache"
	KeyMemory   = "memory"
	KeyLogLevel = "log-level"
	KeyDiagLog  = "diag-log"
	KeyAddr     = "addr"
)

const (
	DefaultArtifact = harness.DefaultArtifact
	DefaultLog      = executor.DefaultLogFile
	DefaultLogLevel = "warn"
	DefaultMemory   = "256mb"
	DefaultAddr     = ":8080"
)

type Config struct {
	Artifact string        `mapstructure:"artifact" validate:"required"`
	Log      string        `mapstructure:"log" validate:"required"`
	Quiet    bool          `mapstructure:"quiet"`
	Sync     bool          `mapstructure:"sync"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0s"`
	NoCache  bool          `mapstructure:"no-cache"`
	Memory   string        `mapstructure:"memory" validate:"omitempty,oneof=1mb 16mb 64mb 256mb 1gb"`
	LogLevel string        `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	DiagLog  string        `mapstructure:"diag-log"`
	Addr     string        `mapstructure:"addr" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their flag names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Artifact: DefaultArtifact,
		Log:      DefaultLog,
		Memory:   DefaultMemory,
		LogLevel: DefaultLogLevel,
		Addr:     DefaultAddr,
	}
}

// Load resolves the configuration. configFile may be empty. Only flags the
// user changed override the lower layers.
func Load(flags *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault(KeyArtifact, d.Artifact)
	v.SetDefault(KeyLog, d.Log)
	v.SetDefault(KeyQuiet, d.Quiet)
	v.SetDefault(KeySync, d.Sync)
	v.SetDefault(KeyTimeout, d.Timeout)
	v.SetDefault(KeyNoCache, d.NoCache)
	v.SetDefault(KeyMemory, d.Memory)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyDiagLog, d.DiagLog)
	v.SetDefault(KeyAddr, d.Addr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if filepath.Ext(configFile) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return Config{}, &errors.Error{
				Phase:  errors.PhaseConfig,
				Kind:   errors.KindInvalidInput,
				Detail: fmt.Sprintf("read config %s", configFile),
				Cause:  err,
			}
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("decode config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and reports every violation.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.InvalidInput(errors.PhaseConfig, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.InvalidInput(errors.PhaseConfig, strings.Join(msgs, "; "))
}

// MemoryPages converts Memory to a wasm page limit. Zero means no limit.
func (c Config) MemoryPages() uint32 {
	switch strings.ToLower(c.Memory) {
	case "1mb":
		return executor.MemoryLimit1MB
	case "16mb":
		return executor.MemoryLimit16MB
	case "64mb":
		return executor.MemoryLimit64MB
	case "256mb":
		return executor.MemoryLimit256MB
	case "1gb":
		return executor.MemoryLimit1GB
	default:
		return 0
	}
}

// ExecutorOptions translates the executor-level settings.
func (c Config) ExecutorOptions() []executor.ExecutorOption {
	var opts []executor.ExecutorOption
	if !c.NoCache {
		opts = append(opts, executor.WithDiskCache())
	}
	if pages := c.MemoryPages(); pages > 0 {
		opts = append(opts, executor.WithMemoryLimit(pages))
	}
	return opts
}

// RunOptions translates the per-run settings. console receives the mirror
// unless Quiet is set.
func (c Config) RunOptions(console io.Writer) []executor.Option {
	opts := []executor.Option{
		executor.WithLogFile(c.Log),
		executor.WithSync(c.Sync),
		executor.WithTimeout(c.Timeout),
	}
	if !c.Quiet && console != nil {
		opts = append(opts, executor.WithConsole(console))
	}
	return opts
}
