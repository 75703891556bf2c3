package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	current     atomic.Pointer[slog.Logger]
	development atomic.Bool
)

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	development.Store(os.Getenv("ENVIRONMENT") == "development")
}

// Setup replaces the process logger for the given environment.
func Setup(env string) *slog.Logger {
	return SetupWriter(env, os.Stdout)
}

// SetupWriter is Setup writing to w: a colored pretty handler in development,
// JSON in production and plain text otherwise.
func SetupWriter(env string, w io.Writer) *slog.Logger {
	var h slog.Handler
	switch env {
	case "development":
		h = NewPrettyHandler(w, slog.LevelDebug)
	case "production":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	l := slog.New(h)
	current.Store(l)
	development.Store(env == "development")
	slog.SetDefault(l)
	return l
}

// L returns the process logger for structured calls.
func L() *slog.Logger {
	return current.Load()
}

func Info(format string, v ...interface{}) {
	L().Info(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	L().Error(fmt.Sprintf(format, v...))
}

func Debug(format string, v ...interface{}) {
	if development.Load() {
		L().Debug(fmt.Sprintf(format, v...))
	}
}

func Warn(format string, v ...interface{}) {
	L().Warn(fmt.Sprintf(format, v...))
}

// Err is a slog attribute for errors.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
