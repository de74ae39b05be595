// Package pidllog backs pidl.Logger with github.com/rs/zerolog.
package pidllog

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/havenworks/pidl"
)

// Options configures the zerolog adapter.
type Options struct {
	Writer io.Writer
	Level  string // "debug", "info", "warn", "error"; defaults to "info"
	Fields map[string]any
}

// Logger implements pidl.Logger using zerolog.
type Logger struct {
	logger zerolog.Logger
}

// New constructs a Logger from Options.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	zl := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	for k, v := range opts.Fields {
		zl = zl.With().Interface(k, v).Logger()
	}

	return &Logger{logger: zl}, nil
}

// With derives a child Logger carrying additional persistent fields.
func (l *Logger) With(fields ...any) pidl.Logger {
	if l == nil {
		return NoOp()
	}
	zl := l.logger
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		zl = zl.With().Interface(key, fields[i+1]).Logger()
	}
	return &Logger{logger: zl}
}

// Debug emits a debug-level entry.
func (l *Logger) Debug(msg string, fields ...any) { l.log(l.logger.Debug(), msg, fields) }

// Info emits an info-level entry.
func (l *Logger) Info(msg string, fields ...any) { l.log(l.logger.Info(), msg, fields) }

// Warn emits a warning-level entry.
func (l *Logger) Warn(msg string, fields ...any) { l.log(l.logger.Warn(), msg, fields) }

// Error emits an error-level entry, attaching err.
func (l *Logger) Error(err error, msg string, fields ...any) {
	l.log(l.logger.Error().Err(err), msg, fields)
}

func (l *Logger) log(event *zerolog.Event, msg string, fields []any) {
	if l == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, fields[i+1])
	}
	event.Msg(msg)
}

var _ pidl.Logger = (*Logger)(nil)
