package pdfrenderer

import (
	"context"
	"fmt"
	"image"
	"log/slog"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// PointsPerInch is the PDF user-space unit density; a page rendered at
// 72 DPI has the same pixel size as its point size.
const PointsPerInch = 72.0

// Library is a loaded PDF rendering engine
type Library interface {
	// OpenDocument parses raw PDF bytes
	OpenDocument(data []byte) (Document, error)
}

// Document is an open PDF document owned by a Library
type Document interface {
	PageCount() (int, error)
	// PageSize returns the native page size in PDF points
	PageSize(index int) (width, height float64, err error)
	// RenderPage rasterizes a zero-based page at the given resolution
	RenderPage(index int, dpi float64) (image.Image, error)
	Close() error
}

// LoadFunc initializes a rendering library. It is called by a Loader at most
// once per load cycle.
type LoadFunc func(ctx context.Context) (Library, error)

// Renderer names accepted by NewLoadFunc
const (
	RendererPDFium = "pdfium"
	RendererFitz   = "fitz"
)

// NewLoadFunc returns the loader for the named rendering engine
func NewLoadFunc(name string) (LoadFunc, error) {
	switch name {
	case "", RendererPDFium:
		return LoadPDFium, nil
	case RendererFitz:
		return LoadFitz, nil
	default:
		return nil, fmt.Errorf("unknown renderer %q (supported: %s, %s)", name, RendererPDFium, RendererFitz)
	}
}
