package main

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
	"github.com/drummonds/resumefeedback/feedback"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
)

type ExtractTextResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

type ToImageResponse struct {
	Image string `json:"image"` // base64 encoded PNG
	Name  string `json:"name,omitempty"`
	Error string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string                  `json:"status"`
	Renderer  pdfrenderer.LoaderState `json:"renderer"`
	Timestamp string                  `json:"timestamp"`
}

// pdfService is a standalone conversion service for callers that only need
// PDF rendering
type pdfService struct {
	converter *pdfrenderer.Converter
	blobs     *pdfrenderer.BlobStore
	opts      pdfrenderer.Options
}

func serveCmd(renderer *string) *cobra.Command {
	var port string
	var preload bool
	var opts pdfrenderer.Options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the PDF conversion HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			converter, blobs, err := newConverter(*renderer)
			if err != nil {
				return err
			}
			if preload {
				if err := converter.Preload(cmd.Context()); err != nil {
					return err
				}
			}
			service := &pdfService{converter: converter, blobs: blobs, opts: opts}
			e := service.echo()
			Logger.Info("Starting PDF service", "port", port, "renderer", *renderer)
			if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	defaultPort := os.Getenv("PORT")
	if defaultPort == "" {
		defaultPort = "8002"
	}
	cmd.Flags().StringVar(&port, "port", defaultPort, "port to listen on")
	cmd.Flags().BoolVar(&preload, "preload", true, "load the rendering engine before accepting requests")
	cmd.Flags().Float64Var(&opts.Scale, "scale", pdfrenderer.DefaultScale, "default resolution multiplier")
	cmd.Flags().Float64Var(&opts.Quality, "quality", pdfrenderer.DefaultQuality, "default PNG quality 0..1")
	cmd.Flags().IntVar(&opts.MaxRetries, "retries", pdfrenderer.DefaultMaxRetries, "total conversion attempts")
	return cmd
}

func (s *pdfService) echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("32M"))
	e.GET("/health", s.healthHandler)
	e.POST("/pdf/extract-text", s.extractTextHandler)
	e.POST("/pdf/to-image", s.toImageHandler)
	return e
}

func (s *pdfService) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Renderer:  s.converter.Loader().State(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *pdfService) extractTextHandler(c echo.Context) error {
	header, err := c.FormFile("pdf")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ExtractTextResponse{Error: "No PDF file provided"})
	}
	Logger.Info("Processing text extraction", "file", header.Filename)

	data, err := pdfrenderer.FileFromHeader(header).ReadAll()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ExtractTextResponse{Error: "Failed to read PDF file"})
	}
	text, err := feedback.ExtractText(data)
	if err != nil {
		Logger.Warn("Text extraction error", "file", header.Filename, "error", err)
		return c.JSON(http.StatusInternalServerError, ExtractTextResponse{Error: fmt.Sprintf("Text extraction failed: %v", err)})
	}
	return c.JSON(http.StatusOK, ExtractTextResponse{Text: text})
}

func (s *pdfService) toImageHandler(c echo.Context) error {
	header, err := c.FormFile("pdf")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ToImageResponse{Error: "No PDF file provided"})
	}
	Logger.Info("Processing PDF to image conversion", "file", header.Filename)

	result := s.converter.Convert(c.Request().Context(), pdfrenderer.FileFromHeader(header), s.opts)
	if !result.OK() {
		Logger.Warn("Image conversion error", "file", header.Filename, "error", result.Error)
		return c.JSON(http.StatusUnprocessableEntity, ToImageResponse{Error: result.Error})
	}
	// the image goes back inline, so the in-process URL is not needed
	s.blobs.Revoke(result.ImageURL)

	return c.JSON(http.StatusOK, ToImageResponse{
		Image: base64.StdEncoding.EncodeToString(result.File.Data),
		Name:  result.File.Name,
	})
}
