package pdfrenderer

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFiumLibrary renders with go-pdfium running PDFium as WebAssembly (pure Go, no CGo).
// Compiling the wasm module is the expensive part, so one pool is shared by
// every conversion and each open document checks out its own instance.
type PDFiumLibrary struct {
	pool            pdfium.Pool
	instanceTimeout time.Duration
}

// LoadPDFium initializes the WebAssembly pool
func LoadPDFium(ctx context.Context) (Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  2,
		MaxTotal: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}
	Logger.Info("PDFium WebAssembly pool initialized", "took", time.Since(started))
	return &PDFiumLibrary{pool: pool, instanceTimeout: 30 * time.Second}, nil
}

// OpenDocument checks out a PDFium instance and opens the document in it
func (l *PDFiumLibrary) OpenDocument(data []byte) (Document, error) {
	instance, err := l.pool.GetInstance(l.instanceTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}
	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &data,
	})
	if err != nil {
		instance.Close()
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &pdfiumDocument{instance: instance, doc: doc.Document}, nil
}

// Close releases the WebAssembly pool
func (l *PDFiumLibrary) Close() error {
	if l.pool == nil {
		return nil
	}
	err := l.pool.Close()
	l.pool = nil
	return err
}

type pdfiumDocument struct {
	instance pdfium.Pdfium
	doc      references.FPDF_DOCUMENT
}

func (d *pdfiumDocument) PageCount() (int, error) {
	resp, err := d.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: d.doc,
	})
	if err != nil {
		return 0, fmt.Errorf("unable to get page count: %w", err)
	}
	return resp.PageCount, nil
}

func (d *pdfiumDocument) PageSize(index int) (float64, float64, error) {
	resp, err := d.instance.FPDF_GetPageSizeByIndex(&requests.FPDF_GetPageSizeByIndex{
		Document: d.doc,
		Index:    index,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get size of page %d: %w", index, err)
	}
	return resp.Width, resp.Height, nil
}

func (d *pdfiumDocument) RenderPage(index int, dpi float64) (image.Image, error) {
	pageRender, err := d.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: int(math.Round(dpi)),
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: d.doc,
				Index:    index,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", index, err)
	}
	// the bitmap lives in wasm memory until Cleanup
	img := imaging.Clone(pageRender.Result.Image)
	pageRender.Cleanup()
	return img, nil
}

func (d *pdfiumDocument) Close() error {
	_, err := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: d.doc,
	})
	if closeErr := d.instance.Close(); err == nil {
		err = closeErr
	}
	return err
}
