// Package storage keeps uploaded resumes and their page images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/drummonds/resumefeedback/config"
	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// ErrNotFound is returned when a stored file does not exist
var ErrNotFound = errors.New("file not found")

// FSItem describes one stored file
type FSItem struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Type    string    `json:"type"` // file or directory
	Size    int64     `json:"size"`
	Mime    string    `json:"mime,omitempty"`
	Created time.Time `json:"created"`
}

// FileStore stores files by path
type FileStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (FSItem, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// NewStore returns the store selected by STORAGE_TYPE
func NewStore(ctx context.Context, cfg config.StorageConfig) (FileStore, error) {
	switch cfg.StorageType {
	case "", "local":
		return NewLocalStore(cfg.DocumentPath)
	case "minio", "s3":
		return NewMinioStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q (supported: local, minio)", cfg.StorageType)
	}
}

// objectName builds a unique, flat object name for an upload
func objectName(id ulid.ULID, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return id.String() + "-" + base
}

// ValidPath reports whether p is a single flat object name
func ValidPath(p string) bool {
	return p != "" && p != "." && p != ".." && !strings.ContainsAny(p, "/\\")
}
