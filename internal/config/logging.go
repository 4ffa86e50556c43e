package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// LogFileName is the per-run log written into the output root
const LogFileName = "renamer.log"

// SetupLogger creates a logger that writes text to console and to logFile.
// logFile is truncated so each run starts with a fresh log.
// Returns the logger and a cleanup function to close the file.
func SetupLogger(console io.Writer, logFile string, level slog.Level) (*slog.Logger, func() error, error) {
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := SetupLoggerWithWriters(console, file, level)

	cleanup := func() error {
		return file.Close()
	}

	return logger, cleanup, nil
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(console, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: renameLevels}
	consoleHandler := slog.NewTextHandler(console, opts)
	fileHandler := slog.NewTextHandler(file, opts)
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler))
}

// renameLevels prints WARN as WARNING in log lines
func renameLevels(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
		a.Value = slog.StringValue("WARNING")
	}
	return a
}

// Level maps the verbose flag to a slog level
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// ConsoleLogger creates a text logger for commands that write no run log
func ConsoleLogger(console io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(console, &slog.HandlerOptions{Level: level, ReplaceAttr: renameLevels}))
}
