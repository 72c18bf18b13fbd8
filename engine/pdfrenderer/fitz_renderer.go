package pdfrenderer

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzLibrary renders with go-fitz (requires CGo and MuPDF)
type FitzLibrary struct{}

// LoadFitz returns the MuPDF-backed library. MuPDF is linked in, so there is
// nothing to initialize beyond honouring ctx.
func LoadFitz(ctx context.Context) (Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	Logger.Info("Using MuPDF renderer")
	return &FitzLibrary{}, nil
}

// OpenDocument opens PDF bytes with MuPDF
func (l *FitzLibrary) OpenDocument(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) PageCount() (int, error) {
	return d.doc.NumPage(), nil
}

func (d *fitzDocument) PageSize(index int) (float64, float64, error) {
	bound, err := d.doc.Bound(index)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get size of page %d: %w", index, err)
	}
	return float64(bound.Dx()), float64(bound.Dy()), nil
}

func (d *fitzDocument) RenderPage(index int, dpi float64) (image.Image, error) {
	img, err := d.doc.ImageDPI(index, dpi)
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", index, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
