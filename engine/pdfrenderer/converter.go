package pdfrenderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// Conversion failure kinds. Every attempt error wraps one of these.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrReadFailure     = errors.New("read failure")
	ErrParseFailure    = errors.New("parse failure")
	ErrPageLoadFailure = errors.New("page load failure")
	ErrRenderFailure   = errors.New("render failure")
	ErrEncodeFailure   = errors.New("encode failure")
	ErrLibraryLoad     = errors.New("failed to load PDF rendering library")
)

// Default conversion options
const (
	DefaultScale      = 2.0
	DefaultQuality    = 0.9
	DefaultMaxRetries = 2
)

// PNGContentType is the media type of every converted image
const PNGContentType = "image/png"

var pdfSuffix = regexp.MustCompile(`(?i)\.pdf$`)

// Options tunes a conversion. Zero fields take the converter defaults.
type Options struct {
	Scale      float64 `json:"scale"`      // resolution multiplier over the page's native size
	Quality    float64 `json:"quality"`    // 0..1
	MaxRetries int     `json:"maxRetries"` // total attempts
}

// ImageFile is an encoded page image
type ImageFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Result is the outcome of a conversion. Either ImageURL and File are set,
// or Error is.
type Result struct {
	ImageURL string     `json:"imageUrl"`
	File     *ImageFile `json:"file"`
	Error    string     `json:"error,omitempty"`
}

// OK reports whether the conversion succeeded
func (r Result) OK() bool {
	return r.File != nil && r.Error == ""
}

// ObjectURLs hands out display URLs for encoded images
type ObjectURLs interface {
	CreateObjectURL(data []byte, contentType string) string
}

// Sleeper waits between attempts. It returns early with ctx's error if ctx
// is done first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Converter turns the first page of a PDF into a PNG, retrying with
// exponential backoff. All conversions share the Loader's library.
type Converter struct {
	Defaults Options
	Sleep    Sleeper

	loader *Loader
	urls   ObjectURLs
}

// NewConverter returns a converter rendering through loader and publishing
// images through urls
func NewConverter(loader *Loader, urls ObjectURLs) *Converter {
	return &Converter{
		Defaults: Options{Scale: DefaultScale, Quality: DefaultQuality, MaxRetries: DefaultMaxRetries},
		Sleep:    timerSleep,
		loader:   loader,
		urls:     urls,
	}
}

// Backoff is the wait after the given failed attempt (1-based)
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * 100 * time.Millisecond
}

// Convert renders page 1 of file to PNG. It never fails outright; failures
// are reported in Result.Error once every attempt is used up.
func (c *Converter) Convert(ctx context.Context, file *File, opts Options) Result {
	opts = c.resolve(opts)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		attempts = attempt
		result, err := c.attempt(ctx, file, opts)
		if err == nil {
			return result
		}
		lastErr = err
		Logger.Warn("PDF conversion attempt failed", "attempt", attempt, "file", file.DisplayName(), "error", err)

		if attempt == opts.MaxRetries {
			break
		}
		if err := c.Sleep(ctx, Backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	return Result{
		Error: fmt.Sprintf("PDF conversion failed after %d attempts: %v", attempts, lastErr),
	}
}

func (c *Converter) resolve(opts Options) Options {
	if opts.Scale <= 0 {
		opts.Scale = c.Defaults.Scale
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	if opts.Quality <= 0 {
		opts.Quality = c.Defaults.Quality
	}
	if opts.Quality <= 0 {
		opts.Quality = DefaultQuality
	}
	opts.Quality = math.Min(opts.Quality, 1)
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = c.Defaults.MaxRetries
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	return opts
}

// attempt runs one full conversion. Nothing it allocates outlives it.
func (c *Converter) attempt(ctx context.Context, file *File, opts Options) (Result, error) {
	if err := validateFile(file); err != nil {
		return Result{}, err
	}

	lib, release, err := c.loader.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	data, err := file.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to read file content: %w", ErrReadFailure, err)
	}
	if len(data) == 0 {
		return Result{}, fmt.Errorf("%w: failed to read file content", ErrReadFailure)
	}

	doc, err := lib.OpenDocument(data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}
	defer doc.Close()

	pages, err := doc.PageCount()
	if err != nil || pages < 1 {
		return Result{}, fmt.Errorf("%w: failed to load PDF page", ErrPageLoadFailure)
	}
	pageWidth, pageHeight, err := doc.PageSize(0)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrPageLoadFailure, err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	img, err := renderViewport(doc, pageWidth, pageHeight, opts.Scale)
	if err != nil {
		return Result{}, err
	}

	encoded, err := encodePNG(img, opts.Quality)
	if err != nil {
		return Result{}, err
	}

	imageFile := &ImageFile{
		Name:        ImageName(file.Name),
		ContentType: PNGContentType,
		Data:        encoded,
	}
	return Result{
		ImageURL: c.urls.CreateObjectURL(encoded, PNGContentType),
		File:     imageFile,
	}, nil
}

// Viewport is the pixel size of a page at scale. Fractional pixels are
// dropped the way a canvas sized from a float viewport drops them.
func Viewport(pageWidth, pageHeight, scale float64) (int, int) {
	width := int(pageWidth * scale)
	height := int(pageHeight * scale)
	return max(width, 1), max(height, 1)
}

func renderViewport(doc Document, pageWidth, pageHeight, scale float64) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic while rendering: %v", ErrRenderFailure, r)
		}
	}()

	width, height := Viewport(pageWidth, pageHeight, scale)
	img, err = doc.RenderPage(0, PointsPerInch*scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailure, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: renderer returned no image", ErrRenderFailure)
	}

	// renderers round DPI, so snap to the exact viewport with a high quality filter
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}
	return img, nil
}

// encodePNG writes img as PNG. PNG is lossless, so quality only picks how
// hard the encoder compresses.
func encodePNG(img image.Image, quality float64) ([]byte, error) {
	encoder := png.Encoder{CompressionLevel: compressionFor(quality)}
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailure, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: failed to create image blob", ErrEncodeFailure)
	}
	return buf.Bytes(), nil
}

func compressionFor(quality float64) png.CompressionLevel {
	switch {
	case quality >= 0.95:
		return png.BestCompression
	case quality < 0.5:
		return png.BestSpeed
	default:
		return png.DefaultCompression
	}
}

// ImageName swaps a trailing .pdf (any case) for .png
func ImageName(pdfName string) string {
	return pdfSuffix.ReplaceAllString(pdfName, "") + ".png"
}

// IsPDFName reports whether name ends in .pdf, ignoring case
func IsPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}

func validateFile(file *File) error {
	if file == nil || file.Size <= 0 {
		return fmt.Errorf("%w: invalid or empty file", ErrInvalidInput)
	}
	if file.ContentType != "application/pdf" && !IsPDFName(file.Name) {
		return fmt.Errorf("%w: file is not a valid PDF", ErrInvalidInput)
	}
	return nil
}

func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsLibraryLoaded reports whether the rendering library is loaded
func (c *Converter) IsLibraryLoaded() bool {
	return c.loader.IsLoaded()
}

// IsLibraryLoading reports whether the rendering library is being loaded
func (c *Converter) IsLibraryLoading() bool {
	return c.loader.IsLoading()
}

// Preload loads the rendering library ahead of the first conversion
func (c *Converter) Preload(ctx context.Context) error {
	return c.loader.Preload(ctx)
}

// Reset drops the loaded library so the next conversion reloads it
func (c *Converter) Reset() {
	c.loader.Reset()
}

// Loader exposes the shared library loader
func (c *Converter) Loader() *Loader {
	return c.loader
}
