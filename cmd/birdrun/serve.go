package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/birdrun/config"
	"github.com/caffeineduck/birdrun/errors"
	"github.com/caffeineduck/birdrun/executor"
	"github.com/caffeineduck/birdrun/sink"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for running modules",
	Long: `Start an HTTP server that runs posted modules against the env host
functions. Output is captured in memory per request; no log file is written.

Endpoints:
  POST   /run?timeout=5s   Run the module in the request body
  POST   /inspect          Report the module's imports and exports
  GET    /health           Health check
  GET    /metrics          Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String(config.KeyAddr, config.DefaultAddr, "Address to listen on")
	serveCmd.Flags().Duration(config.KeyTimeout, 0, "Default run timeout (0 = no limit)")
	serveCmd.Flags().Int64("max-body", 16<<20, "Max module size in bytes")
	rootCmd.AddCommand(serveCmd)
}

type runResponse struct {
	Lines      []string `json:"lines"`
	Calls      int      `json:"calls"`
	DurationMs int64    `json:"duration_ms"`
	Digest     string   `json:"digest,omitempty"`
	State      string   `json:"state"`
	Error      string   `json:"error,omitempty"`
	Kind       string   `json:"kind,omitempty"`
}

type server struct {
	exec    *executor.Executor
	timeout time.Duration
	maxBody int64
	metrics *serverMetrics
	logger  *zap.Logger
}

func newServer(exec *executor.Executor, timeout time.Duration, maxBody int64, logger *zap.Logger) *server {
	return &server{
		exec:    exec,
		timeout: timeout,
		maxBody: maxBody,
		metrics: newServerMetrics(),
		logger:  logger,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", s.handleRun)
	mux.HandleFunc("/inspect", s.handleInspect)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

// readModule reads the posted module, writing an error response on failure.
func (s *server) readModule(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	wasm, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("module exceeds %d bytes", s.maxBody), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "read body", http.StatusBadRequest)
		return nil, false
	}
	if len(wasm) == 0 {
		http.Error(w, "module required", http.StatusBadRequest)
		return nil, false
	}
	return wasm, true
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	timeout := s.timeout
	if v := r.URL.Query().Get("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			http.Error(w, "invalid timeout", http.StatusBadRequest)
			return
		}
		timeout = d
	}

	wasm, ok := s.readModule(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	result := s.exec.RunModule(r.Context(), wasm,
		executor.WithRecorder(sink.NewMemory(&buf)),
		executor.WithTimeout(timeout))
	s.metrics.observe(result)

	resp := runResponse{
		Lines:      splitLines(buf.String()),
		Calls:      result.Calls,
		DurationMs: result.Duration.Milliseconds(),
		Digest:     result.Digest,
		State:      result.State.String(),
	}
	status := http.StatusOK
	if result.Error != nil {
		resp.Error = result.Error.Error()
		resp.Kind = string(errors.KindOf(result.Error))
		status = http.StatusUnprocessableEntity
	}
	s.logger.Debug("run served",
		zap.String("state", resp.State),
		zap.Int("calls", resp.Calls),
		zap.String("kind", resp.Kind))

	writeJSON(w, status, resp)
}

func (s *server) handleInspect(w http.ResponseWriter, r *http.Request) {
	wasm, ok := s.readModule(w, r)
	if !ok {
		return
	}

	surface, err := s.exec.Inspect(r.Context(), wasm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, surface)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// splitLines undoes the log framing: every line ends in a newline.
func splitLines(log string) []string {
	if log == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(log, "\n"), "\n")
}

func runServe(cmd *cobra.Command, args []string) error {
	maxBody, _ := cmd.Flags().GetInt64("max-body")

	exec, err := newExecutor()
	if err != nil {
		return err
	}
	defer exec.Close()

	srv := newServer(exec, settings.Timeout, maxBody, logger)
	httpServer := &http.Server{
		Addr:              settings.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	fmt.Fprintf(cmd.ErrOrStderr(), "birdrun server listening on %s\n", settings.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
