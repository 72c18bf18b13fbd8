package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
)

type stubLibrary struct{ fail bool }

func (l stubLibrary) OpenDocument(data []byte) (pdfrenderer.Document, error) {
	if l.fail {
		return nil, errors.New("malformed PDF")
	}
	return stubDocument{}, nil
}

type stubDocument struct{}

func (stubDocument) PageCount() (int, error) { return 1, nil }

func (stubDocument) PageSize(index int) (float64, float64, error) { return 100, 50, nil }

func (stubDocument) RenderPage(index int, dpi float64) (image.Image, error) {
	scale := dpi / pdfrenderer.PointsPerInch
	img := image.NewRGBA(image.Rect(0, 0, int(100*scale), int(50*scale)))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img, nil
}

func (stubDocument) Close() error { return nil }

func newTestService(t *testing.T, lib stubLibrary) *pdfService {
	t.Helper()
	Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	pdfrenderer.Logger = Logger
	load := func(ctx context.Context) (pdfrenderer.Library, error) { return lib, nil }
	blobs := pdfrenderer.NewBlobStore("blob:")
	converter := pdfrenderer.NewConverter(pdfrenderer.NewLoader(load), blobs)
	converter.Sleep = func(ctx context.Context, _ time.Duration) error { return nil }
	return &pdfService{converter: converter, blobs: blobs, opts: pdfrenderer.Options{Scale: 1}}
}

func pdfForm(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(data)
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestToImage(t *testing.T) {
	service := newTestService(t, stubLibrary{})
	e := service.echo()

	body, contentType := pdfForm(t, "pdf", "cv.pdf", []byte("%PDF-1.7 test"))
	req := httptest.NewRequest(http.MethodPost, "/pdf/to-image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ToImageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Name != "cv.png" {
		t.Errorf("Expected cv.png, got %q", resp.Name)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		t.Fatalf("Image is not base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Image is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50, got %v", img.Bounds())
	}
	if service.blobs.Len() != 0 {
		t.Errorf("Expected the image URL to be revoked, %d blobs remain", service.blobs.Len())
	}
}

func TestToImageFailures(t *testing.T) {
	service := newTestService(t, stubLibrary{fail: true})
	e := service.echo()

	req := httptest.NewRequest(http.MethodPost, "/pdf/to-image", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a file, got %d", rec.Code)
	}

	body, contentType := pdfForm(t, "pdf", "cv.pdf", []byte("%PDF-1.7 test"))
	req = httptest.NewRequest(http.MethodPost, "/pdf/to-image", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", rec.Code)
	}
	var resp ToImageResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error != "PDF conversion failed after 2 attempts: parse failure: malformed PDF" {
		t.Errorf("Unexpected error %q", resp.Error)
	}
}

func TestHealth(t *testing.T) {
	service := newTestService(t, stubLibrary{})
	rec := httptest.NewRecorder()
	service.echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" || resp.Renderer != pdfrenderer.StateUnloaded {
		t.Errorf("Unexpected health %+v", resp)
	}
}
