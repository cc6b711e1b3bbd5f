// Package sink provides the append-only output log a harness run records
// printed values into.
package sink

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/caffeineduck/birdrun/errors"
)

// resource is the storage behind a Sink.
type resource interface {
	io.Writer
	truncate() error
	sync() error
	close() error
}

// Sink owns a single log resource for the duration of one run.
// It is not safe for concurrent use; a run records from one goroutine.
type Sink struct {
	res     resource
	console io.Writer
	doSync  bool
	lines   int
	closed  bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithConsole mirrors every recorded line to w.
func WithConsole(w io.Writer) Option {
	return func(s *Sink) {
		s.console = w
	}
}

// WithSync fsyncs the log after every recorded line.
func WithSync(enabled bool) Option {
	return func(s *Sink) {
		s.doSync = enabled
	}
}

// Open creates or truncates the log file at path. The returned sink is empty.
func Open(path string, opts ...Option) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.SinkWrite(fmt.Sprintf("open %s", path), err)
	}
	return newSink(&fileResource{f: f}, opts), nil
}

// NewMemory returns a sink that records into buf. buf is reset first.
func NewMemory(buf *bytes.Buffer, opts ...Option) *Sink {
	buf.Reset()
	return newSink(&memoryResource{buf: buf}, opts)
}

func newSink(res resource, opts []Option) *Sink {
	s := &Sink{res: res}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset truncates the log back to empty.
func (s *Sink) Reset() error {
	if s.closed {
		return errors.SinkWrite("reset closed sink", nil)
	}
	if err := s.res.truncate(); err != nil {
		return errors.SinkWrite("truncate log", err)
	}
	s.lines = 0
	return nil
}

// Record appends line and a newline to the log, then mirrors it to the
// console. The log write completes before Record returns.
func (s *Sink) Record(line string) error {
	if s.closed {
		return errors.SinkWrite("record on closed sink", nil)
	}

	data := make([]byte, 0, len(line)+1)
	data = append(data, line...)
	data = append(data, '\n')

	n, err := s.res.Write(data)
	if err != nil {
		return errors.SinkWrite(fmt.Sprintf("append line %d", s.lines+1), err)
	}
	if n != len(data) {
		return errors.SinkWrite(fmt.Sprintf("append line %d", s.lines+1), io.ErrShortWrite)
	}
	if s.doSync {
		if err := s.res.sync(); err != nil {
			return errors.SinkWrite(fmt.Sprintf("sync line %d", s.lines+1), err)
		}
	}
	s.lines++

	if s.console != nil {
		// The console is a debug mirror; its failures do not fail the run.
		_, _ = s.console.Write(data)
	}
	return nil
}

// Lines returns how many lines were recorded since the last reset.
func (s *Sink) Lines() int {
	return s.lines
}

// Close releases the log resource.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.res.close()
}

type fileResource struct {
	f *os.File
}

func (r *fileResource) Write(p []byte) (int, error) { return r.f.Write(p) }
func (r *fileResource) sync() error                 { return r.f.Sync() }
func (r *fileResource) close() error                { return r.f.Close() }

func (r *fileResource) truncate() error {
	if err := r.f.Truncate(0); err != nil {
		return err
	}
	_, err := r.f.Seek(0, io.SeekStart)
	return err
}

type memoryResource struct {
	buf *bytes.Buffer
}

func (r *memoryResource) Write(p []byte) (int, error) { return r.buf.Write(p) }
func (r *memoryResource) sync() error                 { return nil }
func (r *memoryResource) close() error                { return nil }

func (r *memoryResource) truncate() error {
	r.buf.Reset()
	return nil
}
