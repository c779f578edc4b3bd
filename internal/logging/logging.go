// Package logging configures slog for ck. The MCP server runs over stdio, so
// stdout must carry only JSON-RPC; all logging goes to a rotating file and,
// optionally, stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// WriteToStderr whether to also write to stderr (default: true).
	WriteToStderr bool
}

// DefaultConfig returns sensible defaults for file logging.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// MCPConfig returns configuration for MCP stdio mode: file only, no stderr.
func MCPConfig() Config {
	cfg := DefaultConfig()
	cfg.WriteToStderr = false
	return cfg
}

// DefaultLogPath returns ~/.ck/logs/ck.log.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ck", "ck.log")
	}
	return filepath.Join(home, ".ck", "logs", "ck.log")
}

// Setup initializes file-based logging and returns the logger plus a cleanup
// function that flushes and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var output io.Writer = io.Discard
	cleanup := func() {}

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, nil, err
		}
		writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		output = writer
		cleanup = func() { _ = writer.Close() }
	}

	if cfg.WriteToStderr {
		if output == io.Discard {
			output = os.Stderr
		} else {
			output = io.MultiWriter(output, os.Stderr)
		}
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	return slog.New(handler), cleanup, nil
}

// SetupDefault installs the configured logger as slog default.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
