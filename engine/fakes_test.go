package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
	"github.com/drummonds/resumefeedback/feedback"
)

var testPDF = []byte("%PDF-1.4\n1 0 obj<<>>endobj\ntrailer<<>>\n%%EOF")

const testJobDescription = "We are hiring a backend engineer to build and operate Go services on Kubernetes."

// stubLibrary renders blank 200x100pt pages
type stubLibrary struct {
	fail bool
}

func (l *stubLibrary) OpenDocument(data []byte) (pdfrenderer.Document, error) {
	if l.fail {
		return nil, errors.New("malformed PDF")
	}
	return stubDocument{}, nil
}

type stubDocument struct{}

func (stubDocument) PageCount() (int, error) { return 1, nil }

func (stubDocument) PageSize(index int) (float64, float64, error) { return 200, 100, nil }

func (stubDocument) RenderPage(index int, dpi float64) (image.Image, error) {
	w := int(math.Round(200 * dpi / pdfrenderer.PointsPerInch))
	h := int(math.Round(100 * dpi / pdfrenderer.PointsPerInch))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 240
	}
	img.SetGray(0, 0, color.Gray{Y: 0})
	return img, nil
}

func (stubDocument) Close() error { return nil }

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// stubAnalyzer returns canned feedback and records what it was asked
type stubAnalyzer struct {
	mu       sync.Mutex
	err      error
	requests []feedback.Request
}

func (a *stubAnalyzer) Analyze(ctx context.Context, req feedback.Request) (*feedback.Feedback, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.err != nil {
		return nil, a.err
	}
	return &feedback.Feedback{
		OverallScore: 81,
		ATS:          feedback.ATSScore{Score: 75, Tips: []feedback.Tip{{Type: feedback.TipGood, Tip: "Readable layout"}}},
		Skills:       feedback.CategoryScore{Score: 70},
	}, nil
}

func (a *stubAnalyzer) calls() []feedback.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]feedback.Request(nil), a.requests...)
}

// multipartBody builds a form with the given fields and an optional file part
func multipartBody(t *testing.T, fields map[string]string, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("Failed to write field %s: %v", k, err)
		}
	}
	if fileName != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("Failed to create file part: %v", err)
		}
		part.Write(data)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}
