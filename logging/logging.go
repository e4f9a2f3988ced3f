// ABOUTME: Structured logging setup built on zerolog
// ABOUTME: Writes to a log file by default since stdout belongs to the TUI and MCP transport
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects where and how log lines are written.
type Config struct {
	Level   string // trace, debug, info, warn, error
	Format  string // console or json
	File    string // empty writes to stderr
	Verbose bool   // also mirror to stderr when File is set
}

// Logger wraps zerolog so packages share one configured instance.
type Logger struct {
	zl     zerolog.Logger
	closer io.Closer
}

// New builds a logger. The returned Logger must be closed when File is set.
func New(cfg Config) (*Logger, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = f
		if cfg.Verbose {
			out = io.MultiWriter(f, os.Stderr)
		}
	}

	return &Logger{zl: build(out, cfg), closer: closer}, nil
}

// NewWriter builds a logger over an arbitrary writer.
func NewWriter(w io.Writer, cfg Config) *Logger {
	return &Logger{zl: build(w, cfg)}
}

func build(w io.Writer, cfg Config) zerolog.Logger {
	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	zl := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()

	// Libraries that log through the global logger end up in the same place.
	log.Logger = zl
	return zl
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Component returns a sublogger tagged with the component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zl.With().Str("component", name).Logger()
}

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
