package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/resumefeedback/config"
	database "github.com/drummonds/resumefeedback/database"
	engine "github.com/drummonds/resumefeedback/engine"
	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
	"github.com/drummonds/resumefeedback/feedback"
	"github.com/drummonds/resumefeedback/storage"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
	pdfrenderer.Logger = Logger
	feedback.Logger = Logger
	storage.Logger = Logger
}

// @title resumefeedback API
// @version 1.0
// @description Resume upload, PDF to PNG conversion and AI feedback

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @tag.name Resumes
// @tag.description Resume upload and analysis

// @tag.name Conversion
// @tag.description PDF to PNG conversion and renderer lifecycle

// @tag.name Jobs
// @tag.description Background job tracking

// @tag.name Health
// @tag.description Service health check

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	Logger.Info("Setting up database", "type", serverConfig.DatabaseType)
	db, err := database.NewRepository(serverConfig)
	if err != nil {
		Logger.Error("Unable to set up database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	Logger.Info("Database setup complete")

	store, err := storage.NewStore(context.Background(), serverConfig.StorageConfig)
	if err != nil {
		Logger.Error("Unable to set up storage", "type", serverConfig.StorageType, "error", err)
		os.Exit(1)
	}

	load, err := pdfrenderer.NewLoadFunc(serverConfig.Renderer)
	if err != nil {
		Logger.Error("Unable to select renderer", "renderer", serverConfig.Renderer, "error", err)
		os.Exit(1)
	}
	blobs := pdfrenderer.NewBlobStore("/blob/")
	converter := pdfrenderer.NewConverter(pdfrenderer.NewLoader(load), blobs)
	converter.Defaults = pdfrenderer.Options{
		Scale:      serverConfig.Scale,
		Quality:    serverConfig.Quality,
		MaxRetries: serverConfig.MaxRetries,
	}

	e := newEcho(serverConfig.MaxUploadBytes)
	Logger.Info("Echo created")

	serverHandler := &engine.ServerHandler{
		DB:           db,
		Echo:         e,
		ServerConfig: serverConfig,
		Converter:    converter,
		Blobs:        blobs,
		Store:        store,
		Analyzer:     feedback.NewOpenAIAnalyzer(serverConfig.FeedbackConfig),
	}
	serverHandler.RegisterRoutes(e)

	Logger.Info("About to initialize schedules")
	scheduler := serverHandler.InitializeSchedules() //initialize all the cron jobs
	defer scheduler.Stop()
	Logger.Info("Schedules initialized, about to run startup checks")
	if err := serverHandler.StartupChecks(); err != nil {
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	Logger.Info("Startup checks complete")

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = e.Start(addr)

		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				os.Exit(1)
			}
		} else if startErr != nil && startErr != http.ErrServerClosed {
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		} else {
			break
		}
	}

	if serverConfig.ListenAddrPort != startPort {
		Logger.Warn("Server ran on alternative port due to conflicts",
			"requested_port", startPort,
			"actual_port", serverConfig.ListenAddrPort)
	}
	serverHandler.Wait()
}

// newEcho builds the server with JSON API errors and the shared middleware
func newEcho(maxUpload int64) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	if maxUpload <= 0 {
		maxUpload = engine.DefaultMaxUploadBytes
	}

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		if code == http.StatusRequestEntityTooLarge && strings.HasPrefix(c.Request().URL.Path, "/api/") {
			engine.RespondError(c, code, engine.FileTooLargeError(maxUpload))
			return
		}
		if code == http.StatusNotFound && strings.HasPrefix(c.Request().URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${method} ${uri} ${status} ${latency_human}\n",
	}))
	// headroom over the file limit for the form fields
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", maxUpload/1024+64)))
	return e
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}
