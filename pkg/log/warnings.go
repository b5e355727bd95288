package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/blakeapm/textlearn/pkg/errors"
)

// EnableZerologWarnings routes pkg/errors warnings through a zerolog logger.
// Warning types that implement zerolog.LogObjectMarshaler contribute their
// structured fields to the event.
func EnableZerologWarnings() {
	EnableZerologWarningsTo(os.Stderr)
}

// EnableZerologWarningsTo is like EnableZerologWarnings with a custom sink;
// tests pass a buffer here.
func EnableZerologWarningsTo(w io.Writer) {
	logger := zerolog.New(w).With().Timestamp().Str("component", "textlearn").Logger()
	errors.SetZerologWarnFunc(func(warning error) {
		ev := logger.Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(warning.Error())
	})
}
