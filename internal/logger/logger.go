// Package logger provides structured logging for standupbot.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with component-scoped helpers.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // console output for terminals
	Output io.Writer
}

// ParseLevel maps a config level name to a zerolog level.
// An empty name means info.
func ParseLevel(name string) (zerolog.Level, error) {
	switch name {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level %q", name)
}

// New creates a logger. Unknown levels fall back to info; config validation
// rejects them before this point.
func New(cfg Config) *Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "standupbot").
		Logger()
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// WithComponent returns a child logger tagged with component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", component).Logger()}
}

// WithUser returns a child logger tagged with a Slack user id.
func (l *Logger) WithUser(userID string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("user", userID).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }
