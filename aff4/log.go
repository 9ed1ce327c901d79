package aff4

import (
	"fmt"
	"log"
	"os"
)

// Level is a logging severity, ordered least to most severe, matching
// the threshold check every call site below performs before writing.
type Level int

// The defined levels, following the teacher's Debug/Info/Notice/Error
// ladder (observed across every call site in backend/local,
// backend/chunker, backend/crypt, backend/cache, backend/hasher: they
// call fs.Debugf/fs.Infof/fs.Logf/fs.Errorf against a single global
// threshold).
const (
	LevelDebug Level = iota
	LevelInfo
	LevelNotice
	LevelError
)

// LogLevel is the process-wide logging threshold; messages below it
// are dropped. Defaults to LevelNotice, matching the teacher's default
// of suppressing Debug/Info output unless -v is passed.
var LogLevel = LevelNotice

// LogPrint is the sink every log call funnels through. Tests replace
// it to capture output instead of writing to stderr.
var LogPrint = func(level Level, text string) {
	log.New(os.Stderr, "", log.LstdFlags).Print(text)
}

// objectName renders the optional "subject" argument the teacher's
// logging functions take (any value with a String method, or nil).
func objectName(o interface{}) string {
	if o == nil {
		return ""
	}
	if s, ok := o.(interface{ String() string }); ok {
		return s.String() + ": "
	}
	return fmt.Sprintf("%v: ", o)
}

func logf(level Level, o interface{}, format string, args ...interface{}) {
	if level < LogLevel {
		return
	}
	LogPrint(level, objectName(o)+fmt.Sprintf(format, args...))
}

// Debugf logs at LevelDebug, scoped to o (may be nil).
func Debugf(o interface{}, format string, args ...interface{}) {
	logf(LevelDebug, o, format, args...)
}

// Infof logs at LevelInfo, scoped to o (may be nil).
func Infof(o interface{}, format string, args ...interface{}) {
	logf(LevelInfo, o, format, args...)
}

// Logf logs at LevelNotice, scoped to o (may be nil). This is the
// level the teacher's plain fs.Logf uses for messages that should be
// visible without -v.
func Logf(o interface{}, format string, args ...interface{}) {
	logf(LevelNotice, o, format, args...)
}

// Errorf logs at LevelError, scoped to o (may be nil).
func Errorf(o interface{}, format string, args ...interface{}) {
	logf(LevelError, o, format, args...)
}
