package engine

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/drummonds/resumefeedback/config"
	"github.com/drummonds/resumefeedback/database"
	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
	"github.com/drummonds/resumefeedback/feedback"
	"github.com/drummonds/resumefeedback/storage"
	"github.com/labstack/echo/v4"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// FilesPrefix is the URL prefix stored files are served under
const FilesPrefix = "/files/"

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Converter    *pdfrenderer.Converter
	Blobs        *pdfrenderer.BlobStore
	Store        storage.FileStore
	Analyzer     feedback.Analyzer

	pipelines sync.WaitGroup
}

// Wait blocks until every background analysis started so far has finished
func (serverHandler *ServerHandler) Wait() {
	serverHandler.pipelines.Wait()
}

// conversionOptions are the configured converter settings
func (serverHandler *ServerHandler) conversionOptions() pdfrenderer.Options {
	cfg := serverHandler.ServerConfig.ConverterConfig
	return pdfrenderer.Options{Scale: cfg.Scale, Quality: cfg.Quality, MaxRetries: cfg.MaxRetries}
}

// fileURL is the public path of a stored file
func fileURL(path string) string {
	return FilesPrefix + path
}

// storedPath reverses fileURL
func storedPath(url string) (string, bool) {
	if !strings.HasPrefix(url, FilesPrefix) {
		return "", false
	}
	return strings.TrimPrefix(url, FilesPrefix), true
}
