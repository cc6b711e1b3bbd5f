package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates which step of a run produced the error
type Phase string

const (
	PhaseLoad        Phase = "load"        // artifact read
	PhaseInstantiate Phase = "instantiate" // compile, link, instantiate
	PhaseRun         Phase = "run"         // entry invocation
	PhaseRecord      Phase = "record"      // output sink writes
	PhaseHost        Phase = "host"        // host function bodies
	PhaseConfig      Phase = "config"      // harness configuration
)

// Kind categorizes the error
type Kind string

const (
	KindArtifactNotFound   Kind = "artifact_not_found"
	KindInstantiation      Kind = "instantiation"
	KindMissingEntryExport Kind = "missing_entry_export"
	KindExecutionTrap      Kind = "execution_trap"
	KindSinkWriteFailure   Kind = "sink_write_failure"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindInvalidInput       Kind = "invalid_input"
)

// Sentinels for errors.Is matching on kind alone, whatever the phase.
var (
	ErrArtifactNotFound   = &Error{Kind: KindArtifactNotFound}
	ErrInstantiation      = &Error{Kind: KindInstantiation}
	ErrMissingEntryExport = &Error{Kind: KindMissingEntryExport}
	ErrExecutionTrap      = &Error{Kind: KindExecutionTrap}
	ErrSinkWriteFailure   = &Error{Kind: KindSinkWriteFailure}
)

// Error is the structured error type for every run failure
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ExitCode maps a run error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindArtifactNotFound:
		return 2
	case KindInstantiation:
		return 3
	case KindMissingEntryExport:
		return 4
	case KindExecutionTrap, KindOutOfBounds:
		return 5
	case KindSinkWriteFailure:
		return 6
	default:
		return 1
	}
}

// ArtifactNotFound creates an error for a missing or unreadable artifact
func ArtifactNotFound(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindArtifactNotFound,
		Detail: fmt.Sprintf("read %s", path),
		Cause:  cause,
	}
}

// Instantiation creates an error for a module the runtime rejected
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingImports creates an instantiation error naming every import the
// host cannot satisfy, as "module.name".
func MissingImports(imports []string) *Error {
	sorted := append([]string(nil), imports...)
	sort.Strings(sorted)
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: fmt.Sprintf("unresolved import(s): %s", strings.Join(sorted, ", ")),
	}
}

// MissingEntryExport creates an error for a module without a callable entry
func MissingEntryExport(name, detail string) *Error {
	msg := fmt.Sprintf("export %q", name)
	if detail != "" {
		msg += " " + detail
	}
	return &Error{
		Phase:  PhaseRun,
		Kind:   KindMissingEntryExport,
		Detail: msg,
	}
}

// ExecutionTrap creates an error for a fault raised while the entry ran
func ExecutionTrap(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseRun,
		Kind:   KindExecutionTrap,
		Detail: detail,
		Cause:  cause,
	}
}

// SinkWrite creates an error for an output log that could not be written
func SinkWrite(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseRecord,
		Kind:   KindSinkWriteFailure,
		Detail: detail,
		Cause:  cause,
	}
}

// OutOfBounds creates an error for a linear memory read past the end
func OutOfBounds(offset uint32, size uint64) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("offset %d out of bounds (memory size %d)", offset, size),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}
