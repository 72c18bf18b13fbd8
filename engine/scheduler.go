package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/drummonds/resumefeedback/database"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
)

// CleanupReport is what one cleanup pass removed
type CleanupReport struct {
	JobsDeleted   int  `json:"jobsDeleted"`
	BlobsRevoked  int  `json:"blobsRevoked"`
	RendererReset bool `json:"rendererReset"`
}

func (serverHandler *ServerHandler) cleanupInterval() time.Duration {
	minutes := serverHandler.ServerConfig.CleanupInterval
	if minutes <= 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}

// InitializeSchedules preloads the renderer and starts the cleanup cron job
func (serverHandler *ServerHandler) InitializeSchedules() *cron.Cron {
	if serverHandler.ServerConfig.Preload {
		Logger.Info("Preloading rendering library at startup")
		go func() {
			if err := serverHandler.Converter.Preload(context.Background()); err != nil {
				Logger.Warn("Rendering library preload failed, it will load on first use", "error", err)
			}
		}()
	}

	interval := serverHandler.cleanupInterval()
	c := cron.New()
	var cleanupJob cron.Job
	cleanupJob = cron.FuncJob(func() { serverHandler.cleanupJobFunc() })
	cleanupJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cleanupJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(fmt.Sprintf("@every %s", interval), cleanupJob); err != nil {
		Logger.Error("Unable to schedule cleanup job", "error", err)
	}
	Logger.Info("Adding cleanup job scheduler", "interval_minutes", interval.Minutes())
	c.Start()
	return c
}

// cleanupJobFunc drops finished jobs past retention, expired display URLs
// and a rendering library left idle for a whole interval
func (serverHandler *ServerHandler) cleanupJobFunc() (report CleanupReport) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in cleanup job", "panic", r)
		}
	}()

	retention := time.Duration(serverHandler.ServerConfig.JobRetentionHrs) * time.Hour
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	deleted, err := serverHandler.DB.DeleteOldJobs(retention)
	if err != nil {
		Logger.Error("Failed to delete old jobs", "error", err)
	}
	report.JobsDeleted = deleted

	ttl := time.Duration(serverHandler.ServerConfig.BlobTTLMinutes) * time.Minute
	if ttl > 0 {
		report.BlobsRevoked = serverHandler.Blobs.RevokeOlderThan(ttl)
	}

	loader := serverHandler.Converter.Loader()
	if loader.IsLoaded() && loader.IdleFor() >= serverHandler.cleanupInterval() {
		Logger.Info("Rendering library idle, releasing it", "idle", loader.IdleFor())
		serverHandler.Converter.Reset()
		report.RendererReset = true
	}

	Logger.Info("Cleanup finished", "jobsDeleted", report.JobsDeleted, "blobsRevoked", report.BlobsRevoked, "rendererReset", report.RendererReset)
	return report
}

// cleanupJobFuncWithTracking wraps the cleanup with job tracking
func (serverHandler *ServerHandler) cleanupJobFuncWithTracking(jobID ulid.ULID) {
	if err := serverHandler.DB.UpdateJobStatus(jobID, database.JobStatusRunning, "Cleaning up"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}
	report := serverHandler.cleanupJobFunc()
	result, _ := json.Marshal(report)
	if err := serverHandler.DB.CompleteJob(jobID, string(result)); err != nil {
		Logger.Error("Failed to complete cleanup job", "jobID", jobID, "error", err)
	}
}

// RunCleanupNow triggers the cleanup job immediately
// @Summary Run cleanup
// @Description Delete old jobs, revoke expired image URLs and release an idle renderer
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Job created with jobId"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /cleanup [post]
func (serverHandler *ServerHandler) RunCleanupNow(c echo.Context) error {
	Logger.Info("Cleanup triggered via API")

	job, err := serverHandler.DB.CreateJob(database.JobTypeCleanup, "Starting cleanup")
	if err != nil {
		Logger.Error("Failed to create cleanup job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create cleanup job",
		})
	}

	serverHandler.pipelines.Add(1)
	go func() {
		defer serverHandler.pipelines.Done()
		serverHandler.cleanupJobFuncWithTracking(job.ID)
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Cleanup started",
		"jobId":   job.ID.String(),
	})
}
