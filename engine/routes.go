package engine

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes adds every API and file route to e
func (serverHandler *ServerHandler) RegisterRoutes(e *echo.Echo) {
	// Resume API routes
	e.POST("/api/resume/upload", serverHandler.UploadResume)
	e.GET("/api/resumes", serverHandler.GetResumes)
	e.GET("/api/resume/:id", serverHandler.GetResume)
	e.DELETE("/api/resume/:id", serverHandler.DeleteResume)

	// Conversion API routes
	e.POST("/api/convert", serverHandler.ConvertPDF)
	e.GET("/api/renderer/status", serverHandler.GetRendererStatus)
	e.POST("/api/renderer/preload", serverHandler.PreloadRenderer)
	e.POST("/api/renderer/reset", serverHandler.ResetRenderer)

	// Job tracking API routes
	e.GET("/api/jobs", serverHandler.GetRecentJobs)
	e.GET("/api/jobs/active", serverHandler.GetActiveJobs)
	e.GET("/api/jobs/steps", serverHandler.GetAnalysisSteps)
	e.GET("/api/jobs/:id", serverHandler.GetJob)

	// Admin API routes
	e.POST("/api/cleanup", serverHandler.RunCleanupNow)
	e.GET("/api/health", serverHandler.GetHealth)

	// File routes (serve actual files - not JSON, so not under /api/*)
	e.GET("/blob/:id", serverHandler.GetBlob)
	e.DELETE("/blob/:id", serverHandler.RevokeBlob)
	e.GET(FilesPrefix+":id", serverHandler.GetStoredFile)
}
