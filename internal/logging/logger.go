package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup initializes the global slog logger with JSON output to stdout and
// returns the handler so it can be combined with a database sink later.
func Setup() slog.Handler {
	return SetupWriter(os.Stdout)
}

func SetupWriter(w io.Writer) slog.Handler {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	return handler
}
