package engine

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/drummonds/resumefeedback/storage"
	"github.com/labstack/echo/v4"
)

// GetBlob serves an image by its in-memory display URL
func (serverHandler *ServerHandler) GetBlob(c echo.Context) error {
	data, contentType, ok := serverHandler.Blobs.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Image not found or revoked",
		})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=3600")
	return c.Blob(http.StatusOK, contentType, data)
}

// RevokeBlob releases a display URL
func (serverHandler *ServerHandler) RevokeBlob(c echo.Context) error {
	if !serverHandler.Blobs.Revoke(c.Param("id")) {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Image not found or revoked",
		})
	}
	return c.NoContent(http.StatusNoContent)
}

// GetStoredFile streams a stored resume or page image
func (serverHandler *ServerHandler) GetStoredFile(c echo.Context) error {
	path := c.Param("id")
	data, err := serverHandler.Store.Read(c.Request().Context(), path)
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "File not found",
		})
	}
	if err != nil {
		Logger.Error("Failed to read stored file", "path", path, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to read file",
		})
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return c.Blob(http.StatusOK, contentType, data)
}

// GetHealth reports whether the service can take uploads
// @Summary Health check
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Failure 503 {object} map[string]interface{} "Database unavailable"
// @Router /health [get]
func (serverHandler *ServerHandler) GetHealth(c echo.Context) error {
	status := http.StatusOK
	databaseStatus := "ok"
	if _, err := serverHandler.DB.GetActiveJobs(); err != nil {
		Logger.Error("Health check database query failed", "error", err)
		status = http.StatusServiceUnavailable
		databaseStatus = "unavailable"
	}
	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	return c.JSON(status, map[string]interface{}{
		"status":       overall,
		"database":     databaseStatus,
		"databaseType": serverHandler.ServerConfig.DatabaseType,
		"storageType":  serverHandler.ServerConfig.StorageType,
		"renderer":     serverHandler.rendererStatus(),
		"blobs":        serverHandler.Blobs.Len(),
		"aiConfigured": serverHandler.ServerConfig.OpenAIAPIKey != "",
	})
}
