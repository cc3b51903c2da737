// Package documents provides read access to the raw content of submitted
// documents. Jobs carry only an input reference; this package turns the
// reference into bytes at execution time.
package documents

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("document not found")

// Resolver resolves input references to document content.
type Resolver interface {
	// Exists reports whether ref currently resolves, without reading content.
	Exists(ctx context.Context, ref string) (bool, error)
	// Resolve returns the full raw content behind ref. Returns ErrNotFound if
	// the document vanished after submission.
	Resolve(ctx context.Context, ref string) ([]byte, error)
}

// LocalResolver serves documents from a directory on the local filesystem.
// References are paths relative to the base directory; references that escape
// it are rejected.
type LocalResolver struct {
	dir string
}

func NewLocalResolver(dir string) *LocalResolver {
	return &LocalResolver{dir: dir}
}

func (r *LocalResolver) Exists(_ context.Context, ref string) (bool, error) {
	path, err := r.path(ref)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat document %s: %w", ref, err)
	}
	return !info.IsDir(), nil
}

func (r *LocalResolver) Resolve(_ context.Context, ref string) ([]byte, error) {
	path, err := r.path(ref)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", ref, err)
	}
	return content, nil
}

func (r *LocalResolver) path(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	clean := filepath.Clean(ref)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: reference escapes document directory: %s", ErrNotFound, ref)
	}
	return filepath.Join(r.dir, clean), nil
}

var _ Resolver = (*LocalResolver)(nil)
