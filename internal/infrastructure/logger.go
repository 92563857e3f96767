package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"allocdash/internal/config"
)

// logState is the process-wide logger and the file it may own
var logState struct {
	sync.Mutex
	logger *slog.Logger
	file   *os.File
}

// InitializeLogger builds the process logger from cfg, makes it the slog
// default and returns it. Later calls return the existing logger.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	logState.Lock()
	defer logState.Unlock()

	if logState.logger != nil {
		return logState.logger, nil
	}

	w := io.Writer(os.Stdout)
	if cfg.Output == "file" || cfg.Output == "both" {
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		logState.file = f
		w = f
		if cfg.Output == "both" {
			w = io.MultiWriter(os.Stdout, f)
		}
	}

	logState.logger = NewLogger(cfg, w)
	slog.SetDefault(logState.logger)
	return logState.logger, nil
}

// GetLogger returns the process logger, falling back to the slog default
// before InitializeLogger has run
func GetLogger() *slog.Logger {
	logState.Lock()
	defer logState.Unlock()
	if logState.logger == nil {
		return slog.Default()
	}
	return logState.logger
}

// NewLogger returns a JSON logger on w. Development mode logs everything
// with source locations.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: LevelFromString(cfg.Level)}
	if cfg.Development {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	return slog.New(traceHandler{next: slog.NewJSONHandler(w, opts)})
}

// LevelFromString maps a configured level name to a slog level; unknown
// names mean info
func LevelFromString(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		if name == "warning" {
			return slog.LevelWarn
		}
		return slog.LevelInfo
	}
	return level
}

// CloseLogFile closes the log file opened by InitializeLogger, if any
func CloseLogFile() error {
	logState.Lock()
	defer logState.Unlock()
	if logState.file == nil {
		return nil
	}
	err := logState.file.Close()
	logState.file = nil
	return err
}

// ResetLoggerForTesting forgets the process logger. Tests only.
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	logState.Lock()
	logState.logger = nil
	logState.Unlock()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}
