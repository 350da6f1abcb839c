// Package archive stores exported datasets on a local filesystem or in an
// S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"strings"
)

// Storage defines the interface for export storage backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Backend types accepted by New.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// Config selects and configures a storage backend.
type Config struct {
	Type string
	Path string
	S3   S3Config
}

// New builds the backend named by cfg.Type. An empty type means local.
func New(cfg Config) (Storage, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeLocal:
		return NewLocalFS(cfg.Path)
	case TypeS3:
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}
