package aff4

import "fmt"

// The error kinds from spec §7. These are lightweight wrapper types so
// callers can match with errors.As while github.com/pkg/errors.Wrap
// still keeps the underlying cause (an *os.PathError, a zip format
// mismatch, ...) visible in Error().

// NotFoundError reports that a URN has no registered handler, a
// referenced volume member is absent, or a stored-in reference could
// not be resolved.
type NotFoundError struct {
	URN string
	Err error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aff4: not found: %s: %v", e.URN, e.Err)
	}
	return fmt.Sprintf("aff4: not found: %s", e.URN)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// FormatError reports a ZIP magic/field mismatch, an inconsistency
// between a bevy index and its payload, or an unrecognized
// compression URN.
type FormatError struct {
	Context string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aff4: format error: %s: %v", e.Context, e.Err)
	}
	return fmt.Sprintf("aff4: format error: %s", e.Context)
}

func (e *FormatError) Unwrap() error { return e.Err }

// IntegrityError reports a block, segment, map or image hash mismatch.
type IntegrityError struct {
	Kind     string // "block", "segment", "map", "image"
	URI      string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("aff4: %s hash mismatch for %s: expected %s, got %s",
		e.Kind, e.URI, e.Expected, e.Actual)
}

// IOError wraps an underlying filesystem failure.
type IOError struct {
	Context string
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("aff4: io error: %s: %v", e.Context, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// AbortedError reports that cancellation was observed at a progress
// report point during a long-running stream copy.
type AbortedError struct {
	Context string
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("aff4: aborted: %s", e.Context)
}

// ProgrammerError is raised (by panicking, not returning) for
// conditions §7 classifies as assertion failures: writing to a
// read-only stream, double-put into the object cache, flushing the
// resolver while objects are in-use. Call Raise to panic with one.
type ProgrammerError struct {
	Context string
}

func (e *ProgrammerError) Error() string {
	return fmt.Sprintf("aff4: programmer error: %s", e.Context)
}

// Raise panics with a ProgrammerError. It is the single call site used
// throughout the module for §7's "ProgrammerError aborts the process"
// rule so every assertion failure looks the same in a stack trace.
func Raise(format string, args ...interface{}) {
	panic(&ProgrammerError{Context: fmt.Sprintf(format, args...)})
}
