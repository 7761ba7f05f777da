package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger builds the application logger from the LOG_FILE and LOG_LEVEL
// settings. Without a log file, logging is discarded: command output goes
// to stdout and must stay machine-readable. The returned closer flushes
// the log file, if any.
func (c *Config) Logger() (*slog.Logger, func() error, error) {
	noop := func() error { return nil }

	if c.LogFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), noop, nil
	}

	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(c.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, f.Close, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
