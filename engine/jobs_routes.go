package engine

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/drummonds/resumefeedback/database"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

const (
	defaultJobPage = 20
	maxJobPage     = 100
)

// GetJob returns one analysis or cleanup job so clients can poll its progress
// @Summary Poll a job
// @Description Status, progress and current step of a resume analysis or cleanup job. A finished analysis carries the resume ID in result; a failed one carries the user facing message in error.
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID returned by the upload or cleanup endpoint"
// @Success 200 {object} database.Job "Job state"
// @Failure 400 {object} map[string]interface{} "Job ID is not a ULID"
// @Failure 404 {object} map[string]interface{} "No such job, or it was removed by cleanup"
// @Failure 500 {object} map[string]interface{} "Job store error"
// @Router /jobs/{id} [get]
func (serverHandler *ServerHandler) GetJob(c echo.Context) error {
	raw := c.Param("id")
	jobID, err := ulid.Parse(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Job ID must be a ULID",
		})
	}

	job, err := serverHandler.DB.GetJob(jobID)
	if errors.Is(err, database.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Job not found",
		})
	}
	if err != nil {
		Logger.Error("Failed to load job for polling", "jobID", raw, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve job",
		})
	}
	return c.JSON(http.StatusOK, job)
}

// GetRecentJobs pages through analysis and cleanup jobs, newest first
// @Summary List jobs
// @Description Finished jobs are kept until the retention cleanup removes them
// @Tags Jobs
// @Produce json
// @Param type query string false "Only jobs of this type" Enums(resume_analysis, cleanup)
// @Param limit query int false "Page size, 1 to 100 (default 20)"
// @Param offset query int false "Jobs to skip (default 0)"
// @Success 200 {array} database.Job "Jobs"
// @Failure 400 {object} map[string]interface{} "Unknown job type"
// @Failure 500 {object} map[string]interface{} "Job store error"
// @Router /jobs [get]
func (serverHandler *ServerHandler) GetRecentJobs(c echo.Context) error {
	var jobType database.JobType
	if raw := c.QueryParam("type"); raw != "" {
		t, ok := database.ParseJobType(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "Unknown job type",
				"type":  raw,
			})
		}
		jobType = t
	}

	limit := defaultJobPage
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= maxJobPage {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}

	jobs, err := serverHandler.DB.GetRecentJobs(jobType, limit, offset)
	if err != nil {
		Logger.Error("Failed to list jobs", "type", jobType, "limit", limit, "offset", offset, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve jobs",
		})
	}
	if jobs == nil {
		jobs = []database.Job{}
	}
	return c.JSON(http.StatusOK, jobs)
}

// GetActiveJobs lists analyses and cleanups that are pending or running
// @Summary List unfinished jobs
// @Tags Jobs
// @Produce json
// @Success 200 {array} database.Job "Pending and running jobs"
// @Failure 500 {object} map[string]interface{} "Job store error"
// @Router /jobs/active [get]
func (serverHandler *ServerHandler) GetActiveJobs(c echo.Context) error {
	jobs, err := serverHandler.DB.GetActiveJobs()
	if err != nil {
		Logger.Error("Failed to list unfinished jobs", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve active jobs",
		})
	}
	if jobs == nil {
		jobs = []database.Job{}
	}
	return c.JSON(http.StatusOK, jobs)
}

// GetAnalysisSteps lists the steps an analysis job reports through currentStep
// @Summary Analysis steps
// @Tags Jobs
// @Produce json
// @Success 200 {array} database.ProgressStep "Steps in order"
// @Router /jobs/steps [get]
func (serverHandler *ServerHandler) GetAnalysisSteps(c echo.Context) error {
	return c.JSON(http.StatusOK, database.AnalysisSteps)
}
