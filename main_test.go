package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestMain(m *testing.M) {
	injectGlobals(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})))
	os.Exit(m.Run())
}

func TestUnknownAPIRouteIsJSON(t *testing.T) {
	e := newEcho(0)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nothing-here", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected a JSON body, got %q", rec.Body.String())
	}
	if body["error"] != "Not Found" || body["path"] != "/api/nothing-here" {
		t.Errorf("Unexpected body %v", body)
	}
}

func TestUnknownPageUsesDefaultHandler(t *testing.T) {
	e := newEcho(0)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nothing-here", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "The requested API endpoint does not exist") {
		t.Error("Non-API paths should not get the API error body")
	}
}

func TestBodyLimit(t *testing.T) {
	e := newEcho(1024)
	e.POST("/api/echo", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	small := httptest.NewRequest(http.MethodPost, "/api/echo", bytes.NewReader(make([]byte, 1024)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, small)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 within the limit, got %d", rec.Code)
	}

	large := httptest.NewRequest(http.MethodPost, "/api/echo", bytes.NewReader(make([]byte, 200*1024)))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, large)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected 413 over the limit, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected a JSON body, got %q", rec.Body.String())
	}
	if body["code"] != "FILE_TOO_LARGE" {
		t.Errorf("Expected FILE_TOO_LARGE, got %v", body["code"])
	}
	if body["error"] != "File is too large. Maximum size is 1.0 KiB." {
		t.Errorf("Unexpected message %v", body["error"])
	}
}

func TestIsAddressInUse(t *testing.T) {
	if isAddressInUse(nil) {
		t.Error("nil is not an address error")
	}
	if !isAddressInUse(errors.New("listen tcp :8000: bind: address already in use")) {
		t.Error("Expected bind failure to be detected")
	}
	if isAddressInUse(errors.New("permission denied")) {
		t.Error("Unexpected match")
	}
}
