package journal

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// NewConsoleHandler returns the handler used for terminal output. Colour is
// only enabled when w is a terminal.
func NewConsoleHandler(w io.Writer, verbose bool) slog.Handler {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
	})
}

// SetupConsole installs a console logger as the slog default and returns it.
func SetupConsole(w io.Writer, verbose bool) *slog.Logger {
	logger := slog.New(NewConsoleHandler(w, verbose))
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
