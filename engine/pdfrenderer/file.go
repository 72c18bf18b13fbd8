package pdfrenderer

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
)

// File is an uploaded document presumed to be a PDF
type File struct {
	Name        string
	ContentType string
	Size        int64
	open        func() (io.ReadCloser, error)
}

// NewFile wraps in-memory content
func NewFile(name, contentType string, data []byte) *File {
	return &File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileFromHeader wraps a multipart upload without reading it
func FileFromHeader(header *multipart.FileHeader) *File {
	return &File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

// OpenFile wraps a file on disk, guessing its media type from the extension
func OpenFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Size:        info.Size(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// ReadAll returns the full content
func (f *File) ReadAll() ([]byte, error) {
	if f.open == nil {
		return nil, fmt.Errorf("file %q has no content", f.Name)
	}
	reader, err := f.open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// DisplayName is the file name for log lines, safe on a nil File
func (f *File) DisplayName() string {
	if f == nil {
		return "<nil>"
	}
	return f.Name
}
