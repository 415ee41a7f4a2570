// Package logging provides the engine's shared slog setup: JSON records
// to stdout and, when a log file path is configured, duplicated to that
// file via io.MultiWriter — the pattern every teacher service
// (zone_simulator's initLogger, topic-init's setupLogger,
// circuit_breaker's newLogger) repeats with minor variation. This
// package is that ambient concern's single implementation for the rest
// of the engine.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds a JSON-handler logger writing to stdout, and additionally
// to logFile when non-empty. The returned close func must be called on
// shutdown; it is a no-op when no file was opened.
func New(logFile string) (*slog.Logger, func() error) {
	var w io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
			l.Error("log_file_open_failed", "path", logFile, "err", err)
			return l, closeFn
		}
		w = io.MultiWriter(os.Stdout, f)
		closeFn = f.Close
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler)
	logger.Info("logger_initialized", "file", logFile)
	return logger, closeFn
}
