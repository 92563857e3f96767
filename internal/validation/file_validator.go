// Package validation checks the directories and files the command line
// tools read from and write to before any work starts.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "allocdash/internal/errors"
)

// FileValidator checks input and output locations
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateInputDirectory checks that dir exists and returns how many files
// match pattern. No match is not an error.
func (v *FileValidator) ValidateInputDirectory(dir, pattern string) (int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("directory %s", dir))
	}
	if err != nil {
		return 0, apperrors.NewStorageError(fmt.Sprintf("failed to stat directory %s", dir), err)
	}
	if !info.IsDir() {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("%s is not a directory", dir))
	}

	if pattern == "" {
		return 0, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("bad pattern %q", pattern))
	}

	count := 0
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() && !isLockFile(m) {
			count++
		}
	}
	if count == 0 {
		v.logger.Warn("No files matching pattern found",
			slog.String("directory", dir),
			slog.String("pattern", pattern))
	}
	return count, nil
}

// ValidateOutputDirectory creates dir if needed and checks it is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateWorkbook checks that path is a readable .xlsx file and not an
// editor lock file
func (v *FileValidator) ValidateWorkbook(path string) error {
	if strings.ToLower(filepath.Ext(path)) != ".xlsx" {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is not an .xlsx workbook", path))
	}
	if isLockFile(path) {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a lock file", path))
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return apperrors.NewNotFoundError(fmt.Sprintf("workbook %s", path))
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("workbook %s is not readable", path), err)
	}
	return f.Close()
}

func isLockFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "~$")
}
