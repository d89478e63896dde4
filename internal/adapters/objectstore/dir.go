// Package objectstore keeps dossier documents on the local filesystem under
// a single root directory.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"certflow/internal/apperr"
)

type Dir struct {
	root string
}

func NewDir(root string) (*Dir, error) {
	if root == "" {
		return nil, fmt.Errorf("objectstore: empty root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: create root: %w", err)
	}
	return &Dir{root: root}, nil
}

// Upload writes the reader to path below the root and returns the path as
// stored. Paths that escape the root are rejected.
func (d *Dir) Upload(ctx context.Context, path string, r io.Reader) (string, error) {
	full, err := d.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", apperr.Remote("create upload dir", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", apperr.Remote("create upload file", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", apperr.Remote("write upload", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", apperr.Remote("close upload", err)
	}
	return path, nil
}

// Remove deletes the given stored paths. Missing files are ignored so that
// compensation after a failed insert is safe to retry.
func (d *Dir) Remove(ctx context.Context, paths []string) error {
	for _, path := range paths {
		full, err := d.resolve(path)
		if err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return apperr.Remote("remove file", err)
		}
	}
	return nil
}

func (d *Dir) resolve(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", apperr.Validationf("invalid storage path %q", path)
	}
	return filepath.Join(d.root, cleaned), nil
}
