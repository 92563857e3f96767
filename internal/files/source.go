package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "allocdash/internal/errors"
)

// Source opens workbook locations for reading
type Source interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// LocalSource reads workbooks from the filesystem
type LocalSource struct {
	basePath string
}

// NewLocalSource creates a source resolving relative paths against basePath
func NewLocalSource(basePath string) *LocalSource {
	return &LocalSource{basePath: basePath}
}

// Resolve returns the absolute filesystem path of location
func (s *LocalSource) Resolve(location string) string {
	if filepath.IsAbs(location) || s.basePath == "" {
		return filepath.Clean(location)
	}
	return filepath.Join(s.basePath, location)
}

// Open implements Source
func (s *LocalSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Resolve(location)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("workbook %s", location)).
				WithContext("location", location)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	return f, nil
}

// Router dispatches s3:// locations to an S3 source and everything else
// to the local source
type Router struct {
	local Source
	s3    Source
}

// NewRouter creates a router. s3 may be nil when remote workbooks are not
// configured.
func NewRouter(local, s3 Source) *Router {
	return &Router{local: local, s3: s3}
}

// Open implements Source
func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if IsS3Location(location) {
		if r.s3 == nil {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("no S3 source configured for %s", location), nil)
		}
		return r.s3.Open(ctx, location)
	}
	return r.local.Open(ctx, location)
}

// IsS3Location reports whether location is an s3:// URL
func IsS3Location(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}
