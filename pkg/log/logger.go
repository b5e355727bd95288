// Package log configures structured logging for textlearn.
//
// Logging goes through Go's log/slog with a JSON handler; a wrapper handler
// extracts cockroachdb/errors stack traces into a dedicated attribute so that
// solver and pipeline failures carry their origin. Library warnings emitted
// via pkg/errors can additionally be routed to a zerolog sink with
// EnableZerologWarnings.
package log

import (
	"fmt"
	"log/slog"
	"os"
)

// SetupLogger installs the default slog JSON logger at the given level.
func SetupLogger(loglevel string) {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     ToLogLevel(loglevel),
	}
	handler := slog.NewJSONHandler(os.Stderr, &ops)
	slog.SetDefault(slog.New(WrapByErrFmtHandler(handler)))
}

// ToLogLevel converts a level name to a slog.Level.
func ToLogLevel(level string) slog.Level {
	switch level {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level: %s", level))
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr wraps an error for slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
