package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface handed to every component.
type Logger interface {
	Info(msg string)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Error(err error)
	Errorf(format string, args ...any)
	WithFields(fields map[string]any) Logger
}

// Options controls how the base logrus logger is built.
type Options struct {
	Level    string // logrus level name, "info" when empty
	Format   string // "json" or "text"
	FilePath string // optional file the output is tee'd into
}

// LogrusLogger implements Logger using logrus.
type LogrusLogger struct {
	entry *logrus.Entry
}

// New builds a logrus-backed Logger writing to stderr and, when configured, a file.
func New(opts Options) (Logger, error) {
	var out io.Writer = os.Stderr
	if opts.FilePath != "" {
		file, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, file)
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	return newWithWriter(out, opts.Format, level), nil
}

func newWithWriter(out io.Writer, format string, level logrus.Level) *LogrusLogger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(level)
	if format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000000",
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

// Default returns a text logger on stderr at info level.
func Default() Logger {
	return newWithWriter(os.Stderr, "text", logrus.InfoLevel)
}

// Discard returns a logger that drops everything, for tests.
func Discard() Logger {
	return newWithWriter(io.Discard, "text", logrus.PanicLevel)
}

func (l *LogrusLogger) Info(msg string) {
	l.entry.Info(msg)
}

func (l *LogrusLogger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *LogrusLogger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *LogrusLogger) Error(err error) {
	l.entry.Error(err)
}

func (l *LogrusLogger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *LogrusLogger) WithFields(fields map[string]any) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}
