package logger

import (
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
)

type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

func (l LogLevel) ToCharmlogLevel() charmlog.Level {
	switch LogLevel(strings.ToLower(string(l))) {
	case DebugLevel:
		return charmlog.DebugLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

type Config struct {
	Level      LogLevel
	Output     io.Writer
	JSON       bool
	AddSource  bool
	TimeFormat string
	Prefix     string
}

func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Output:     os.Stderr,
		TimeFormat: "15:04:05",
	}
}

// Logger is the charm backed implementation of auth.Logger
type Logger struct {
	charm *charmlog.Logger
}

var _ auth.Logger = (*Logger)(nil)

func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	charm := charmlog.NewWithOptions(out, charmlog.Options{
		ReportCaller:    cfg.AddSource,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           cfg.Level.ToCharmlogLevel(),
		Prefix:          cfg.Prefix,
	})
	if cfg.JSON {
		charm.SetFormatter(charmlog.JSONFormatter)
	} else {
		charm.SetFormatter(charmlog.TextFormatter)
	}
	return &Logger{charm: charm}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.charm.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.charm.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.charm.Warn(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.charm.Error(msg, args...)
}

// With returns a child logger that adds args to every entry
func (l *Logger) With(args ...any) *Logger {
	return &Logger{charm: l.charm.With(args...)}
}

// Named returns a child logger with a prefix, e.g. "http" or "auth"
func (l *Logger) Named(prefix string) *Logger {
	return &Logger{charm: l.charm.WithPrefix(prefix)}
}

// Writer exposes the logger as an io.Writer at info level, for libraries
// that only accept one
func (l *Logger) Writer() io.Writer {
	return l.charm.StandardLog(charmlog.StandardLogOptions{
		ForceLevel: charmlog.InfoLevel,
	}).Writer()
}
