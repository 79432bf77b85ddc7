package jpeg

import (
	"io"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog.Logger suitable for Options.Logger,
// writing leveled, human-readable lines to w. Callers who want a
// silent decoder should simply leave Options.Logger at its zero
// value rather than call this.
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}
