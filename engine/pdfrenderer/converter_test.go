package pdfrenderer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj<<>>endobj\ntrailer<<>>\n%%EOF")

func newTestConverter(load LoadFunc) (*Converter, *BlobStore, *recordingSleeper) {
	blobs := NewBlobStore("/blob/")
	sleeper := &recordingSleeper{}
	converter := NewConverter(NewLoader(load), blobs)
	converter.Sleep = sleeper.sleep
	return converter, blobs, sleeper
}

func staticLoad(lib Library) LoadFunc {
	return func(ctx context.Context) (Library, error) { return lib, nil }
}

func TestConvertSuccess(t *testing.T) {
	lib := newFakeLibrary()
	converter, blobs, sleeper := newTestConverter(staticLoad(lib))

	result := converter.Convert(context.Background(), NewFile("resume.PDF", "application/pdf", samplePDF), Options{})
	if !result.OK() {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if result.File.Name != "resume.png" {
		t.Errorf("Expected resume.png, got %s", result.File.Name)
	}
	if result.File.ContentType != PNGContentType {
		t.Errorf("Expected %s, got %s", PNGContentType, result.File.ContentType)
	}
	if !strings.HasPrefix(result.ImageURL, "/blob/") {
		t.Errorf("Unexpected image URL %q", result.ImageURL)
	}
	data, contentType, ok := blobs.Get(result.ImageURL)
	if !ok || contentType != PNGContentType || !bytes.Equal(data, result.File.Data) {
		t.Error("Image URL does not resolve to the encoded image")
	}

	img, err := png.Decode(bytes.NewReader(result.File.Data))
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	// 300x400pt page at the default 2x scale
	if img.Bounds().Dx() != 600 || img.Bounds().Dy() != 800 {
		t.Errorf("Expected 600x800 image, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	if len(sleeper.waits) != 0 {
		t.Errorf("Expected no backoff on first-attempt success, got %v", sleeper.waits)
	}
}

func TestConvertInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		file    *File
		message string
	}{
		{
			name:    "nil file",
			file:    nil,
			message: "invalid or empty file",
		},
		{
			name:    "empty file",
			file:    NewFile("resume.pdf", "application/pdf", nil),
			message: "invalid or empty file",
		},
		{
			name:    "not a pdf",
			file:    NewFile("resume.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("PK")),
			message: "file is not a valid PDF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := newFakeLibrary()
			converter, _, sleeper := newTestConverter(staticLoad(lib))

			result := converter.Convert(context.Background(), tt.file, Options{})
			if result.OK() {
				t.Fatal("Expected failure")
			}
			if result.ImageURL != "" || result.File != nil {
				t.Error("Failure result must carry no image")
			}
			if !strings.Contains(result.Error, "after 2 attempts") {
				t.Errorf("Expected attempt count in %q", result.Error)
			}
			if !strings.Contains(result.Error, tt.message) {
				t.Errorf("Expected %q in %q", tt.message, result.Error)
			}
			if len(sleeper.waits) != 1 || sleeper.waits[0] != 200*time.Millisecond {
				t.Errorf("Expected one 200ms backoff, got %v", sleeper.waits)
			}
			if lib.openCount() != 0 {
				t.Error("Invalid input must not reach the renderer")
			}
		})
	}
}

func TestConvertAcceptsEitherTypeOrExtension(t *testing.T) {
	lib := newFakeLibrary()
	converter, _, _ := newTestConverter(staticLoad(lib))

	byType := converter.Convert(context.Background(), NewFile("upload", "application/pdf", samplePDF), Options{})
	if !byType.OK() {
		t.Errorf("Expected success for declared PDF type, got %s", byType.Error)
	}
	if byType.File != nil && byType.File.Name != "upload.png" {
		t.Errorf("Expected upload.png, got %s", byType.File.Name)
	}

	byName := converter.Convert(context.Background(), NewFile("cv.Pdf", "application/octet-stream", samplePDF), Options{})
	if !byName.OK() {
		t.Errorf("Expected success for .pdf extension, got %s", byName.Error)
	}
}

func TestConvertDeterministicFailureUsesEveryAttempt(t *testing.T) {
	lib := newFakeLibrary()
	lib.failOpens = 100
	converter, _, sleeper := newTestConverter(staticLoad(lib))

	result := converter.Convert(context.Background(), NewFile("resume.pdf", "application/pdf", samplePDF), Options{MaxRetries: 4})
	if result.OK() {
		t.Fatal("Expected failure")
	}
	if !strings.Contains(result.Error, "PDF conversion failed after 4 attempts") {
		t.Errorf("Unexpected error %q", result.Error)
	}
	if !strings.Contains(result.Error, "corrupt xref table") {
		t.Errorf("Expected last underlying error in %q", result.Error)
	}
	if lib.openCount() != 4 {
		t.Errorf("Expected 4 parse attempts, got %d", lib.openCount())
	}
	want := []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	if len(sleeper.waits) != len(want) {
		t.Fatalf("Expected waits %v, got %v", want, sleeper.waits)
	}
	for i := range want {
		if sleeper.waits[i] != want[i] {
			t.Errorf("Wait %d: expected %v, got %v", i, want[i], sleeper.waits[i])
		}
	}
}

func TestConvertRenderFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(lib *fakeLibrary)
		message string
	}{
		{
			name:    "render error",
			setup:   func(lib *fakeLibrary) { lib.renderErr = errors.New("unsupported shading type") },
			message: "render failure: unsupported shading type",
		},
		{
			name:    "no image",
			setup:   func(lib *fakeLibrary) { lib.renderNil = true },
			message: "render failure: renderer returned no image",
		},
		{
			name:    "panic",
			setup:   func(lib *fakeLibrary) { lib.renderPanic = true },
			message: "render failure: panic while rendering: page tree is cyclic",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := newFakeLibrary()
			tt.setup(lib)
			converter, blobs, sleeper := newTestConverter(staticLoad(lib))

			result := converter.Convert(context.Background(), NewFile("resume.pdf", "application/pdf", samplePDF), Options{MaxRetries: 3})
			if result.OK() {
				t.Fatal("Expected failure")
			}
			want := "PDF conversion failed after 3 attempts: " + tt.message
			if result.Error != want {
				t.Errorf("Expected %q, got %q", want, result.Error)
			}
			if result.File != nil || result.ImageURL != "" {
				t.Error("A failed conversion must not carry an image")
			}
			if blobs.Len() != 0 {
				t.Errorf("Expected no blobs, got %d", blobs.Len())
			}
			if lib.openCount() != 3 || len(sleeper.waits) != 2 {
				t.Errorf("Expected 3 attempts with 2 waits, got %d opens and %v", lib.openCount(), sleeper.waits)
			}
		})
	}
}

func TestRenderViewportWrapsFailures(t *testing.T) {
	for _, setup := range []func(lib *fakeLibrary){
		func(lib *fakeLibrary) { lib.renderErr = errors.New("bad stream") },
		func(lib *fakeLibrary) { lib.renderNil = true },
		func(lib *fakeLibrary) { lib.renderPanic = true },
	} {
		lib := newFakeLibrary()
		setup(lib)
		img, err := renderViewport(&fakeDocument{lib: lib}, lib.width, lib.height, DefaultScale)
		if !errors.Is(err, ErrRenderFailure) {
			t.Errorf("Expected ErrRenderFailure, got %v", err)
		}
		if img != nil {
			t.Error("Expected no image on failure")
		}
	}
}

func TestEncodePNGRejectsEmptyImage(t *testing.T) {
	_, err := encodePNG(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultQuality)
	if !errors.Is(err, ErrEncodeFailure) {
		t.Fatalf("Expected ErrEncodeFailure, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "encode failure: ") {
		t.Errorf("Unexpected error text %q", err.Error())
	}
}

func TestConvertRecoversOnSecondAttempt(t *testing.T) {
	flaky := newFakeLibrary()
	flaky.failOpens = 1
	converter, _, sleeper := newTestConverter(staticLoad(flaky))
	retried := converter.Convert(context.Background(), NewFile("resume.pdf", "application/pdf", samplePDF), Options{})

	steady := newFakeLibrary()
	reference, _, _ := newTestConverter(staticLoad(steady))
	first := reference.Convert(context.Background(), NewFile("resume.pdf", "application/pdf", samplePDF), Options{})

	if !retried.OK() {
		t.Fatalf("Expected success on retry, got %s", retried.Error)
	}
	if !bytes.Equal(retried.File.Data, first.File.Data) || retried.File.Name != first.File.Name {
		t.Error("Retried result differs from a first-attempt success")
	}
	if len(sleeper.waits) != 1 {
		t.Errorf("Expected one backoff, got %v", sleeper.waits)
	}
}

func TestConvertRetriesLibraryLoadFailure(t *testing.T) {
	lib := newFakeLibrary()
	var mu sync.Mutex
	loads := 0
	converter, _, _ := newTestConverter(func(ctx context.Context) (Library, error) {
		mu.Lock()
		defer mu.Unlock()
		loads++
		if loads == 1 {
			return nil, errors.New("module fetch failed")
		}
		return lib, nil
	})

	result := converter.Convert(context.Background(), NewFile("resume.pdf", "application/pdf", samplePDF), Options{})
	if !result.OK() {
		t.Fatalf("Expected success after reload, got %s", result.Error)
	}
	if loads != 2 {
		t.Errorf("Expected a second load after the failed one, got %d", loads)
	}
}

func TestConvertNoFirstPage(t *testing.T) {
	lib := newFakeLibrary()
	lib.pages = 0
	converter, _, _ := newTestConverter(staticLoad(lib))

	result := converter.Convert(context.Background(), NewFile("blank.pdf", "application/pdf", samplePDF), Options{MaxRetries: 1})
	if !strings.Contains(result.Error, "after 1 attempts") || !strings.Contains(result.Error, "failed to load PDF page") {
		t.Errorf("Unexpected error %q", result.Error)
	}
}

func TestConvertSnapsToViewport(t *testing.T) {
	lib := newFakeLibrary()
	lib.width, lib.height = 100.6, 50
	converter, _, _ := newTestConverter(staticLoad(lib))

	result := converter.Convert(context.Background(), NewFile("odd.pdf", "application/pdf", samplePDF), Options{Scale: 1})
	if !result.OK() {
		t.Fatalf("Expected success, got %s", result.Error)
	}
	img, err := png.Decode(bytes.NewReader(result.File.Data))
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50 viewport, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestConvertStopsWhenContextCancelled(t *testing.T) {
	lib := newFakeLibrary()
	converter, _, sleeper := newTestConverter(staticLoad(lib))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := converter.Convert(ctx, NewFile("resume.pdf", "application/pdf", samplePDF), Options{MaxRetries: 3})
	if result.OK() {
		t.Fatal("Expected failure on cancelled context")
	}
	if !strings.Contains(result.Error, "after 1 attempts") || !strings.Contains(result.Error, context.Canceled.Error()) {
		t.Errorf("Unexpected error %q", result.Error)
	}
	if len(sleeper.waits) != 1 {
		t.Errorf("Expected the loop to stop at the first backoff, got %v", sleeper.waits)
	}
}

func TestResetForcesReloadOnNextConvert(t *testing.T) {
	lib := newFakeLibrary()
	var mu sync.Mutex
	calls := 0
	converter, _, _ := newTestConverter(countingLoad(lib, &calls, &mu))

	if err := converter.Preload(context.Background()); err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	if !converter.IsLibraryLoaded() {
		t.Fatal("Expected library loaded after preload")
	}

	converter.Reset()
	if converter.IsLibraryLoaded() || converter.IsLibraryLoading() {
		t.Fatal("Expected library unloaded after reset")
	}

	result := converter.Convert(context.Background(), NewFile("resume.pdf", "application/pdf", samplePDF), Options{})
	if !result.OK() {
		t.Fatalf("Convert after reset failed: %s", result.Error)
	}
	if calls != 2 {
		t.Errorf("Expected convert to reload the library, got %d loads", calls)
	}
}

func TestConverterDefaults(t *testing.T) {
	converter, _, _ := newTestConverter(staticLoad(newFakeLibrary()))
	converter.Defaults = Options{Scale: 1.5, MaxRetries: 3}

	got := converter.resolve(Options{Quality: 4})
	want := Options{Scale: 1.5, Quality: 1, MaxRetries: 3}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	converter.Defaults = Options{}
	got = converter.resolve(Options{})
	want = Options{Scale: DefaultScale, Quality: DefaultQuality, MaxRetries: DefaultMaxRetries}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestImageName(t *testing.T) {
	tests := map[string]string{
		"resume.pdf":     "resume.png",
		"resume.PDF":     "resume.png",
		"my.cv.Pdf":      "my.cv.png",
		"notes":          "notes.png",
		"report.pdf.pdf": "report.pdf.png",
	}
	for in, want := range tests {
		if got := ImageName(in); got != want {
			t.Errorf("ImageName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBackoff(t *testing.T) {
	for attempt, want := range map[int]time.Duration{
		1: 200 * time.Millisecond,
		2: 400 * time.Millisecond,
		3: 800 * time.Millisecond,
	} {
		if got := Backoff(attempt); got != want {
			t.Errorf("Backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}
