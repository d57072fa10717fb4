// Package logger builds the leveled loggers used by the command-line tools.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/op/go-logging"

	"github.com/sambeau/unparser/config"
)

// Module is the logging module name used by every unparser logger
const Module = "unparser"

// DefaultFormat is used when the configuration does not name one
const DefaultFormat = "%{time:15:04:05.000} %{level:.4s} %{message}"

// colorFormat wraps DefaultFormat in level colours for terminals
const colorFormat = "%{color}%{time:15:04:05.000} %{level:.4s}%{color:reset} %{message}"

// levelNames maps configuration names to go-logging levels. "warn" is
// accepted as a short form of warning.
var levelNames = map[string]logging.Level{
	"debug":    logging.DEBUG,
	"info":     logging.INFO,
	"notice":   logging.NOTICE,
	"warn":     logging.WARNING,
	"warning":  logging.WARNING,
	"error":    logging.ERROR,
	"critical": logging.CRITICAL,
}

// ParseLevel converts a configured level name.
func ParseLevel(name string) (logging.Level, error) {
	if name == "" {
		return logging.INFO, nil
	}
	if level, ok := levelNames[strings.ToLower(name)]; ok {
		return level, nil
	}
	return logging.INFO, fmt.Errorf("invalid log level: %s", name)
}

// New builds a logger from cfg. Output "stderr" (the default) and "stdout"
// use the given writers; anything else is a file path, opened for append.
// The returned closer releases the file and is a no-op otherwise.
func New(cfg config.LoggingConfig, stdout, stderr io.Writer) (*logging.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer
	var closer io.Closer = nopCloser{}
	switch cfg.Output {
	case "", "stderr":
		out = stderr
	case "stdout":
		out = stdout
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out, closer = f, f
	}

	format := DefaultFormat
	switch cfg.Format {
	case "", "text":
	case "color":
		format = colorFormat
	default:
		format = cfg.Format
	}
	formatter, err := logging.NewStringFormatter(format)
	if err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("invalid log format: %w", err)
	}

	be := logging.NewLogBackend(out, "", 0)
	fbe := logging.NewBackendFormatter(be, formatter)
	leveled := logging.AddModuleLevel(fbe)
	leveled.SetLevel(level, Module)

	l := logging.MustGetLogger(Module)
	l.SetBackend(leveled)
	return l, closer, nil
}

// Discard returns a logger that drops everything
func Discard() *logging.Logger {
	l := logging.MustGetLogger(Module)
	leveled := logging.AddModuleLevel(logging.NewLogBackend(io.Discard, "", 0))
	leveled.SetLevel(logging.CRITICAL, Module)
	l.SetBackend(leveled)
	return l
}

// Memory keeps the most recent records in memory, for tests and for the
// REPL's :log command.
type Memory struct {
	backend *logging.MemoryBackend
}

// NewMemory returns a logger that records up to size entries at level and
// above, and the Memory that reads them back.
func NewMemory(size int, level logging.Level) (*logging.Logger, *Memory) {
	be := logging.NewMemoryBackend(size)
	leveled := logging.AddModuleLevel(be)
	leveled.SetLevel(level, Module)

	l := logging.MustGetLogger(Module)
	l.SetBackend(leveled)
	return l, &Memory{backend: be}
}

// Lines returns the recorded entries, oldest first, as "LEVEL message".
func (m *Memory) Lines() []string {
	var lines []string
	for n := m.backend.Head(); n != nil; n = n.Next() {
		lines = append(lines, n.Record.Level.String()+" "+n.Record.Message())
	}
	return lines
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Std adapts l to a standard library logger at INFO level, for packages
// that take a *log.Logger.
func Std(l *logging.Logger) *log.Logger {
	return log.New(writerFunc(func(p []byte) (int, error) {
		l.Info(strings.TrimRight(string(p), "\n"))
		return len(p), nil
	}), "", 0)
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
