package logx

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level is the minimum severity that gets written
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Fields are structured key/values attached to a log line
type Fields map[string]any

var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetLevel changes the global log level
func SetLevel(level Level) {
	switch level {
	case LevelDebug:
		std.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		std.SetLevel(logrus.WarnLevel)
	case LevelError:
		std.SetLevel(logrus.ErrorLevel)
	default:
		std.SetLevel(logrus.InfoLevel)
	}
}

// ParseLevel maps LOG_LEVEL values to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput redirects log output (tests use a buffer)
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetJSON switches to JSON lines, used outside development
func SetJSON(enabled bool) {
	if enabled {
		std.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
}

// WithFields returns an entry carrying the given fields
func WithFields(fields Fields) *logrus.Entry {
	return std.WithFields(logrus.Fields(fields))
}

// WithField returns an entry carrying a single field
func WithField(key string, value any) *logrus.Entry {
	return std.WithField(key, value)
}

func Debug(args ...any)                 { std.Debug(args...) }
func Debugf(format string, args ...any) { std.Debugf(format, args...) }
func Info(args ...any)                  { std.Info(args...) }
func Infof(format string, args ...any)  { std.Infof(format, args...) }
func Warn(args ...any)                  { std.Warn(args...) }
func Warnf(format string, args ...any)  { std.Warnf(format, args...) }
func Error(args ...any)                 { std.Error(args...) }
func Errorf(format string, args ...any) { std.Errorf(format, args...) }
func Fatalf(format string, args ...any) { std.Fatalf(format, args...) }
