package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the stdout logger as the slog default and returns its
// handler so it can be combined with the database handler later.
// format "text" gives a coloured console handler for local development.
func Setup(format string) slog.Handler {
	h := NewConsoleHandler(os.Stdout, format)
	slog.SetDefault(slog.New(h))
	return h
}

func NewConsoleHandler(w io.Writer, format string) slog.Handler {
	if format == "text" {
		return tint.NewHandler(w, &tint.Options{
			Level:      ConsoleLevel(format),
			TimeFormat: time.Kitchen,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ConsoleLevel(format)})
}

// ConsoleLevel is DEBUG for local text output and INFO otherwise.
func ConsoleLevel(format string) slog.Level {
	if format == "text" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
