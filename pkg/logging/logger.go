package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivanehh/datapipe"
)

// MaxStackSize is the number of records buffered before they are written to the log file
const MaxStackSize int = 5

// DefaultMaxFileSize applies when the configuration does not set a size
var DefaultMaxFileSize int64 = 5096000

type LogConfiguration interface {
	MinLevel() slog.Level
	Dir() string
	MaxFileSize() int
}

type structuredError interface {
	error
	datapipe.Mapable
}

// Config is the plain LogConfiguration used by the cli and tests
type Config struct {
	Level   string `yaml:"level" json:"level,omitempty"`
	Folder  string `yaml:"filePath" json:"file_path,omitempty"`
	MaxSize int    `yaml:"maxSize" json:"max_size,omitempty"`
}

func (lc Config) MinLevel() slog.Level {
	switch strings.ToLower(lc.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (lc Config) Dir() string {
	return lc.Folder
}

func (lc Config) MaxFileSize() int {
	return lc.MaxSize
}

type Option func(*settings)

type settings struct {
	console io.Writer
	attrs   []slog.Attr
}

// WithConsole replaces stdout as the console sink; nil disables console output
func WithConsole(w io.Writer) Option {
	return func(s *settings) {
		s.console = w
	}
}

// WithPipeline tags every record with the pipeline it belongs to
func WithPipeline(name, source string) Option {
	return func(s *settings) {
		s.attrs = append(s.attrs, slog.Group("pipeline", "name", name, "source", source))
	}
}

// Logger is an explicit logging context; create one per process with New and release it with Close
type Logger struct {
	logReporter
	slogger *slog.Logger
	writer  *logFileWriter
	name    string
}

func New(name string, lc LogConfiguration, opts ...Option) *Logger {
	s := settings{console: os.Stdout}
	for _, opt := range opts {
		opt(&s)
	}

	var sinks []io.Writer
	if s.console != nil {
		sinks = append(sinks, s.console)
	}
	l := &Logger{name: name}
	if lc.Dir() != "" {
		maxSize := DefaultMaxFileSize
		if lc.MaxFileSize() > 0 {
			maxSize = int64(lc.MaxFileSize())
		}
		l.writer = newLogFileWriter(filepath.Join(lc.Dir(), name), maxSize)
		l.logReporter = newLogReporter(l.writer)
		sinks = append(sinks, l.writer)
	}

	handle := slog.NewJSONHandler(io.MultiWriter(sinks...), &slog.HandlerOptions{AddSource: false, Level: lc.MinLevel()})
	l.slogger = slog.New(handle)
	for _, a := range s.attrs {
		l.slogger = l.slogger.With(a)
	}
	return l
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return &Logger{
		name:    "discard",
		slogger: slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})),
	}
}

func (l *Logger) Name() string {
	return l.name
}

// With returns a logger that adds args to every record; it shares the file sink of l
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		logReporter: l.logReporter,
		slogger:     l.slogger.With(args...),
		writer:      l.writer,
		name:        l.name,
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs err under "error"; errors carrying structured details have them added under "details"
func (l *Logger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
		var se structuredError
		if errors.As(err, &se) {
			args = append(args, "details", se.AsMap())
		}
	}
	l.slogger.Error(msg, args...)
}

// Close flushes buffered records to the log file
func (l *Logger) Close() error {
	if l.writer == nil {
		return nil
	}
	return l.writer.Flush()
}
