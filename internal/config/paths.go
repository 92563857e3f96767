package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved directories the application writes to or
// reads from
type Paths struct {
	BaseDir   string
	DataDir   string
	ExportDir string
	LogsDir   string
}

// ResolvePaths anchors the configured relative directories at the working
// directory
func (c *Config) ResolvePaths() (*Paths, error) {
	base, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	logsDir := ""
	if c.Logging.Output != "console" {
		logsDir = filepath.Dir(abs(c.Logging.FilePath))
	}

	return &Paths{
		BaseDir:   base,
		DataDir:   abs(c.Data.Dir),
		ExportDir: abs(c.Data.ExportDir),
		LogsDir:   logsDir,
	}, nil
}

// EnsureDirectories creates the writable directories if they don't exist.
// The data directory is only read and is left alone.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ExportDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}
