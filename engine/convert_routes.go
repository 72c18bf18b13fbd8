package engine

import (
	"net/http"
	"strconv"

	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
	"github.com/labstack/echo/v4"
)

// ConvertPDF renders the first page of an uploaded PDF
// @Summary Convert PDF to PNG
// @Description Render page 1 of a PDF, retrying with backoff. Returns the conversion result, or the PNG itself with format=png.
// @Tags Conversion
// @Accept multipart/form-data
// @Produce json,png
// @Param file formData file true "PDF file"
// @Param scale formData number false "Resolution multiplier (default 2)"
// @Param quality formData number false "Quality 0..1 (default 0.9)"
// @Param maxRetries formData int false "Total attempts (default 2)"
// @Param format query string false "png to receive the image bytes"
// @Success 200 {object} pdfrenderer.Result "Converted"
// @Failure 400 {object} map[string]interface{} "Invalid options"
// @Failure 422 {object} pdfrenderer.Result "Conversion failed"
// @Router /convert [post]
func (serverHandler *ServerHandler) ConvertPDF(c echo.Context) error {
	var opts pdfrenderer.Options
	var err error
	if opts.Scale, err = formFloat(c, "scale"); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "Invalid scale"})
	}
	if opts.Quality, err = formFloat(c, "quality"); err != nil || opts.Quality > 1 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "Invalid quality, must be between 0 and 1"})
	}
	if value := c.FormValue("maxRetries"); value != "" {
		if opts.MaxRetries, err = strconv.Atoi(value); err != nil || opts.MaxRetries < 1 {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "Invalid maxRetries, must be a positive integer"})
		}
	}

	defaults := serverHandler.conversionOptions()
	if opts.Scale == 0 {
		opts.Scale = defaults.Scale
	}
	if opts.Quality == 0 {
		opts.Quality = defaults.Quality
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaults.MaxRetries
	}

	// a missing file still goes through the converter, which reports it
	var file *pdfrenderer.File
	if header, err := c.FormFile("file"); err == nil {
		file = pdfrenderer.FileFromHeader(header)
	}

	result := serverHandler.Converter.Convert(c.Request().Context(), file, opts)
	if !result.OK() {
		Logger.Warn("Conversion request failed", "file", file.DisplayName(), "error", result.Error)
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	Logger.Info("Converted PDF", "file", file.DisplayName(), "image", result.File.Name, "url", result.ImageURL)

	if c.QueryParam("format") == "png" {
		c.Response().Header().Set(echo.HeaderContentDisposition, "inline; filename=\""+result.File.Name+"\"")
		return c.Blob(http.StatusOK, result.File.ContentType, result.File.Data)
	}
	return c.JSON(http.StatusOK, result)
}

func formFloat(c echo.Context, name string) (float64, error) {
	value := c.FormValue(name)
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, strconv.ErrRange
	}
	return f, nil
}

// RendererStatus reports the shared rendering library state
type RendererStatus struct {
	Renderer    string                  `json:"renderer"`
	State       pdfrenderer.LoaderState `json:"state"`
	Loaded      bool                    `json:"loaded"`
	Loading     bool                    `json:"loading"`
	Loads       int                     `json:"loads"`
	IdleSeconds float64                 `json:"idleSeconds"`
}

func (serverHandler *ServerHandler) rendererStatus() RendererStatus {
	loader := serverHandler.Converter.Loader()
	state := loader.State()
	renderer := serverHandler.ServerConfig.Renderer
	if renderer == "" {
		renderer = pdfrenderer.RendererPDFium
	}
	return RendererStatus{
		Renderer:    renderer,
		State:       state,
		Loaded:      state == pdfrenderer.StateLoaded,
		Loading:     state == pdfrenderer.StateLoading,
		Loads:       loader.Loads(),
		IdleSeconds: loader.IdleFor().Seconds(),
	}
}

// GetRendererStatus returns the rendering library state
// @Summary Renderer status
// @Tags Conversion
// @Produce json
// @Success 200 {object} RendererStatus "Renderer state"
// @Router /renderer/status [get]
func (serverHandler *ServerHandler) GetRendererStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, serverHandler.rendererStatus())
}

// PreloadRenderer loads the rendering library, or waits for the load in flight
// @Summary Preload renderer
// @Tags Conversion
// @Produce json
// @Success 200 {object} RendererStatus "Renderer state"
// @Failure 503 {object} map[string]interface{} "Library failed to load"
// @Router /renderer/preload [post]
func (serverHandler *ServerHandler) PreloadRenderer(c echo.Context) error {
	if err := serverHandler.Converter.Preload(c.Request().Context()); err != nil {
		Logger.Error("Renderer preload failed", "error", err)
		return RespondError(c, http.StatusServiceUnavailable, CatalogError(CodeServiceUnavailable, err.Error()))
	}
	return c.JSON(http.StatusOK, serverHandler.rendererStatus())
}

// ResetRenderer drops the loaded library so the next conversion reloads it
// @Summary Reset renderer
// @Tags Conversion
// @Produce json
// @Success 200 {object} RendererStatus "Renderer state"
// @Router /renderer/reset [post]
func (serverHandler *ServerHandler) ResetRenderer(c echo.Context) error {
	serverHandler.Converter.Reset()
	return c.JSON(http.StatusOK, serverHandler.rendererStatus())
}
