package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to w at the named level. Unknown levels log at info.
func New(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
