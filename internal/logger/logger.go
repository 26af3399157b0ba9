// Package logger builds the zerolog loggers shared by the server and the migration CLI.
// Output is one JSON object per line with "ts" and "level" fields.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const timestampField = "ts"

// New returns a JSON logger writing to w. Timestamps are rendered in loc.
func New(w io.Writer, loc *time.Location, level string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if loc == nil {
		loc = time.UTC
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	ctx := zerolog.New(w).Level(lvl).With()
	return ctx.Logger().Hook(timestampHook{loc: loc})
}

// Component returns a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// timestampHook stamps each event in the configured location; zerolog's
// global TimestampFunc would leak the zone into every logger in the process.
type timestampHook struct {
	loc *time.Location
}

func (h timestampHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str(timestampField, time.Now().In(h.loc).Format(time.RFC3339Nano))
}
