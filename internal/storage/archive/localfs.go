package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// LocalFS implements Storage on an afero filesystem rooted at basePath.
type LocalFS struct {
	fs       afero.Fs
	basePath string
}

// NewLocalFS creates a LocalFS on the host filesystem.
func NewLocalFS(basePath string) (*LocalFS, error) {
	return NewLocalFSWithFs(afero.NewOsFs(), basePath)
}

// NewLocalFSWithFs creates a LocalFS on fs (e.g. afero.NewMemMapFs in tests).
func NewLocalFSWithFs(fs afero.Fs, basePath string) (*LocalFS, error) {
	if basePath == "" {
		basePath = "."
	}
	if err := fs.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{fs: fs, basePath: basePath}, nil
}

func (l *LocalFS) fullPath(path string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(path))
}

func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	full := l.fullPath(path)
	if err := l.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}
	return afero.WriteFile(l.fs, full, data, 0o644)
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	return afero.ReadFile(l.fs, l.fullPath(path))
}

// List walks prefix and returns slash-separated paths relative to the base,
// sorted.
func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	paths := []string{}
	err := afero.Walk(l.fs, l.fullPath(prefix), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	return l.fs.Remove(l.fullPath(path))
}

func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	return afero.Exists(l.fs, l.fullPath(path))
}
