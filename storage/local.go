package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
)

// LocalStore keeps files in a directory on disk
type LocalStore struct {
	root string
}

// NewLocalStore creates the directory if needed
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("local storage needs a document path")
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("unable to create document folder %s: %w", root, err)
	}
	Logger.Info("Using local file storage", "path", root)
	return &LocalStore{root: root}, nil
}

// Root is the storage directory
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Upload(ctx context.Context, name, contentType string, data []byte) (FSItem, error) {
	if err := ctx.Err(); err != nil {
		return FSItem{}, err
	}
	id := ulid.Make()
	objPath := objectName(id, name)
	fullPath := filepath.Join(s.root, objPath)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return FSItem{}, fmt.Errorf("failed to write %s: %w", objPath, err)
	}
	Logger.Debug("Stored file", "path", fullPath, "size", len(data))
	return FSItem{
		ID:      id.String(),
		Name:    name,
		Path:    objPath,
		Type:    "file",
		Size:    int64(len(data)),
		Mime:    contentType,
		Created: time.Now(),
	}, nil
}

func (s *LocalStore) Read(ctx context.Context, path string) ([]byte, error) {
	if !ValidPath(path) {
		return nil, fmt.Errorf("invalid path %q: %w", path, ErrNotFound)
	}
	data, err := os.ReadFile(filepath.Join(s.root, path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return data, err
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	if !ValidPath(path) {
		return fmt.Errorf("invalid path %q: %w", path, ErrNotFound)
	}
	err := os.Remove(filepath.Join(s.root, path))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return err
}
