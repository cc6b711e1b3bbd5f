package executor

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"github.com/caffeineduck/birdrun/errors"
	"github.com/caffeineduck/birdrun/hostfunc"
	"github.com/caffeineduck/birdrun/sink"
)

// EntryPoint is the export invoked once the module is instantiated.
const EntryPoint = "main"

// State is the lifecycle position of a run.
type State int

const (
	StateIdle State = iota
	StateArtifactLoaded
	StateInstantiating
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArtifactLoaded:
		return "artifact_loaded"
	case StateInstantiating:
		return "instantiating"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result describes one finished run.
type Result struct {
	Calls    int    // values recorded
	Digest   string // BLAKE3-256 of the artifact, hex
	State    State
	Duration time.Duration
	Error    error
}

// Executor runs compiled programs against the env host functions.
type Executor struct {
	cache  wazero.CompilationCache
	cfg    executorConfig
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// New creates an Executor. Compiled code is cached across runs.
func New(opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var cache wazero.CompilationCache
	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	} else {
		cache = wazero.NewCompilationCache()
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Run loads the artifact at artifactPath and runs it. The output log is
// reset before the artifact is read.
func (e *Executor) Run(ctx context.Context, artifactPath string, opts ...Option) Result {
	return e.run(ctx, opts, func() ([]byte, error) {
		wasm, err := os.ReadFile(artifactPath)
		if err != nil {
			return nil, errors.ArtifactNotFound(artifactPath, err)
		}
		return wasm, nil
	})
}

// RunModule runs a module binary already in memory.
func (e *Executor) RunModule(ctx context.Context, wasm []byte, opts ...Option) Result {
	return e.run(ctx, opts, func() ([]byte, error) {
		return wasm, nil
	})
}

func (e *Executor) run(ctx context.Context, opts []Option, load func() ([]byte, error)) (res Result) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return failed(errors.InvalidInput(errors.PhaseConfig, "executor is closed"))
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rec, closeRec, err := openRecorder(cfg)
	if err != nil {
		return failed(err)
	}
	defer func() {
		if err := closeRec(); err != nil && res.Error == nil {
			res.State = StateFailed
			res.Error = errors.SinkWrite("close log", err)
		}
	}()

	wasm, err := load()
	if err != nil {
		e.logger.Warn("artifact load failed", zap.Error(err))
		return failed(err)
	}

	return e.execute(ctx, wasm, rec, cfg)
}

func (e *Executor) execute(ctx context.Context, wasm []byte, rec hostfunc.Recorder, cfg runConfig) Result {
	res := Result{State: StateArtifactLoaded, Digest: digest(wasm)}
	log := e.logger.With(zap.String("digest", res.Digest[:12]))

	env := hostfunc.NewEnv(rec)
	fail := func(err error) Result {
		res.State = StateFailed
		res.Calls = env.Calls()
		res.Error = err
		log.Warn("run failed",
			zap.String("kind", string(errors.KindOf(err))),
			zap.Int("calls", res.Calls),
			zap.Error(err))
		return res
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	rt := wazero.NewRuntimeWithConfig(ctx, e.runtimeConfig())
	defer rt.Close(context.WithoutCancel(ctx))

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return fail(errors.Instantiation("compile module", err))
	}
	defer compiled.Close(context.WithoutCancel(ctx))
	log.Debug("module compiled", zap.Int("size", len(wasm)))

	registry := hostfunc.NewRegistry(env)
	missing := registry.Missing(compiled.ImportedFunctions())
	for _, def := range compiled.ImportedMemories() {
		module, name, _ := def.Import()
		missing = append(missing, module+"."+name)
	}
	if len(missing) > 0 {
		return fail(errors.MissingImports(missing))
	}

	if _, err := registry.Instantiate(ctx, rt); err != nil {
		return fail(errors.Instantiation("instantiate host module "+hostfunc.Namespace, err))
	}

	res.State = StateInstantiating
	moduleConfig := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions()

	mod, err := rt.InstantiateModule(ctx, compiled, moduleConfig)
	if err != nil {
		return fail(classifyInstantiate(ctx, cfg, err))
	}
	log.Debug("module instantiated", zap.Int("start_calls", env.Calls()))

	env.Memory().Bind(mod.Memory())

	res.State = StateRunning
	entry := mod.ExportedFunction(EntryPoint)
	if entry == nil {
		return fail(errors.MissingEntryExport(EntryPoint, "is not an exported function"))
	}
	if n := len(entry.Definition().ParamTypes()); n > 0 {
		return fail(errors.MissingEntryExport(EntryPoint, fmt.Sprintf("takes %d parameters, want 0", n)))
	}

	if _, err := entry.Call(ctx); err != nil {
		return fail(classifyCall(ctx, cfg, err))
	}

	res.State = StateCompleted
	res.Calls = env.Calls()
	log.Info("run completed", zap.Int("calls", res.Calls))
	return res
}

// Inspect compiles wasm and reports its import and export surface without
// running it.
func (e *Executor) Inspect(ctx context.Context, wasm []byte) (Surface, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return Surface{}, errors.InvalidInput(errors.PhaseConfig, "executor is closed")
	}

	rt := wazero.NewRuntimeWithConfig(ctx, e.runtimeConfig())
	defer rt.Close(context.WithoutCancel(ctx))

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return Surface{}, errors.Instantiation("compile module", err)
	}
	defer compiled.Close(context.WithoutCancel(ctx))

	return describe(compiled, digest(wasm)), nil
}

// Close releases the compilation cache. Runs in flight finish first.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	return e.cache.Close(context.Background())
}

func (e *Executor) runtimeConfig() wazero.RuntimeConfig {
	rtConfig := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithCompilationCache(e.cache)
	if e.cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(e.cfg.memoryLimitPages)
	}
	return rtConfig
}

type resetter interface {
	Reset() error
}

// openRecorder returns an empty recorder for the run and its release func.
func openRecorder(cfg runConfig) (hostfunc.Recorder, func() error, error) {
	if cfg.recorder != nil {
		if r, ok := cfg.recorder.(resetter); ok {
			if err := r.Reset(); err != nil {
				if errors.KindOf(err) == "" {
					err = errors.SinkWrite("reset log", err)
				}
				return nil, nil, err
			}
		}
		return cfg.recorder, func() error { return nil }, nil
	}

	s, err := sink.Open(cfg.logFile, sink.WithConsole(cfg.console), sink.WithSync(cfg.sync))
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// classifyInstantiate maps an instantiation failure. Host failures raised
// by a start function keep their own kind only when the log could not be
// written.
func classifyInstantiate(ctx context.Context, cfg runConfig, err error) error {
	if errors.KindOf(err) == errors.KindSinkWriteFailure {
		return err
	}
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Instantiation(fmt.Sprintf("timeout after %v", cfg.timeout), err)
	}
	return errors.Instantiation("instantiate module", err)
}

func classifyCall(ctx context.Context, cfg runConfig, err error) error {
	switch errors.KindOf(err) {
	case errors.KindSinkWriteFailure, errors.KindExecutionTrap:
		return err
	case errors.KindOutOfBounds:
		return errors.ExecutionTrap(hostfunc.NamePrintStr+" read out of bounds", err)
	}
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return errors.ExecutionTrap(fmt.Sprintf("timeout after %v", cfg.timeout), err)
	case context.Canceled:
		return errors.ExecutionTrap("run canceled", err)
	}
	return errors.ExecutionTrap(EntryPoint+" trapped", err)
}

func failed(err error) Result {
	return Result{State: StateFailed, Error: err}
}

func digest(wasm []byte) string {
	sum := blake3.Sum256(wasm)
	return hex.EncodeToString(sum[:])
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "birdrun")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "birdrun")
	}
	return filepath.Join(os.TempDir(), "birdrun-cache")
}
