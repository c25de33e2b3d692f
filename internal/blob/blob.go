// Package blob stores uploaded documents behind opaque references. The
// database backend keeps everything in SQLite; minio and s3 put the bytes in
// an object store.
package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get and Stat for an unknown reference.
var ErrNotFound = errors.New("blob not found")

// Info describes a stored object without its content.
type Info struct {
	ContentType string
	Size        int64
}

// Store persists opaque binary objects.
type Store interface {
	Put(ctx context.Context, contentType string, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, string, error)
	Stat(ctx context.Context, ref string) (Info, error)
	Delete(ctx context.Context, ref string) error
}

// Config selects and configures the backend.
type Config struct {
	Backend        string      `yaml:"backend"` // sqlite, minio, s3
	Prefix         string      `yaml:"prefix"`
	MaxUploadBytes int64       `yaml:"max_upload_bytes"`
	Minio          MinioConfig `yaml:"minio"`
	S3             S3Config    `yaml:"s3"`
}

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendMinio  = "minio"
	BackendS3     = "s3"
)

// New returns the backend named in cfg. db is used by the sqlite backend.
func New(ctx context.Context, cfg Config, db *sql.DB) (Store, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		return NewDBStore(db, cfg.Prefix), nil
	case BackendMinio:
		return NewMinioStore(ctx, cfg.Minio, cfg.Prefix)
	case BackendS3:
		return NewS3Store(ctx, cfg.S3, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// newRef returns a fresh object key under prefix.
func newRef(prefix string) string {
	if prefix == "" {
		prefix = "documents"
	}
	return path.Join(prefix, uuid.NewString())
}
