// Package logging wires log/slog to a size-rotated log file and,
// optionally, stderr. Components receive the logger as an explicit handle;
// only the binary's startup code installs it as the process default.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/filebutler-io/filebutler/internal/config"
)

// Setup initializes logging from the configuration and returns the logger
// plus a cleanup function that flushes and closes the log file.
func Setup(cfg config.LoggingSettings) (*slog.Logger, func(), error) {
	level := ParseLevel(cfg.Level)

	var writers []io.Writer
	cleanup := func() {}

	if cfg.FileEnabled {
		w, err := NewRotatingWriter(filepath.Join(cfg.LogDir, "filebutler.log"), cfg.MaxBytes, cfg.BackupCount)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, w)
		cleanup = func() {
			_ = w.Sync()
			_ = w.Close()
		}
	}
	if cfg.ConsoleEnabled {
		writers = append(writers, os.Stderr)
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler), cleanup, nil
}

// ParseLevel converts a configured level name to a slog.Level. CRITICAL has
// no slog equivalent and maps to error.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
