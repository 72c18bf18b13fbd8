package pdfrenderer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"time"
)

// fakeLibrary renders solid pages sized from the requested DPI
type fakeLibrary struct {
	mu        sync.Mutex
	failOpens int // fail this many OpenDocument calls first
	opens     int
	pages     int
	width     float64
	height    float64
	closed    bool

	renderErr   error // RenderPage fails with this
	renderNil   bool  // RenderPage returns no image and no error
	renderPanic bool
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{pages: 1, width: 300, height: 400}
}

func (l *fakeLibrary) OpenDocument(data []byte) (Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opens++
	if l.opens <= l.failOpens {
		return nil, errors.New("corrupt xref table")
	}
	return &fakeDocument{lib: l}, nil
}

func (l *fakeLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeLibrary) openCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opens
}

func (l *fakeLibrary) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

type fakeDocument struct {
	lib *fakeLibrary
}

func (d *fakeDocument) PageCount() (int, error) {
	return d.lib.pages, nil
}

func (d *fakeDocument) PageSize(index int) (float64, float64, error) {
	if index >= d.lib.pages {
		return 0, 0, errors.New("no such page")
	}
	return d.lib.width, d.lib.height, nil
}

func (d *fakeDocument) RenderPage(index int, dpi float64) (image.Image, error) {
	switch {
	case d.lib.renderPanic:
		panic("page tree is cyclic")
	case d.lib.renderErr != nil:
		return nil, d.lib.renderErr
	case d.lib.renderNil:
		return nil, nil
	}
	w := int(math.Round(d.lib.width * dpi / PointsPerInch))
	h := int(math.Round(d.lib.height * dpi / PointsPerInch))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 250, G: 250, B: 250, A: 255})
		}
	}
	return img, nil
}

func (d *fakeDocument) Close() error {
	return nil
}

// countingLoad hands out lib and counts calls
func countingLoad(lib Library, calls *int, mu *sync.Mutex) LoadFunc {
	return func(ctx context.Context) (Library, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return lib, nil
	}
}

// recordingSleeper records requested waits without sleeping
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}
