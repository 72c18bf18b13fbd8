package engine

import (
	"errors"
	"net/http"

	"github.com/drummonds/resumefeedback/database"
	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
	"github.com/labstack/echo/v4"
)

// UploadResume validates the form and starts the analysis
// @Summary Upload a resume for analysis
// @Description Upload a PDF resume with the job it targets; the analysis runs in the background
// @Tags Resumes
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Resume PDF"
// @Param company-name formData string true "Company name"
// @Param job-title formData string true "Job title"
// @Param job-description formData string true "Job description"
// @Success 202 {object} map[string]interface{} "Resume and job IDs"
// @Failure 400 {object} map[string]interface{} "Validation errors"
// @Router /resume/upload [post]
func (serverHandler *ServerHandler) UploadResume(c echo.Context) error {
	form := FormData{
		CompanyName:    c.FormValue("company-name"),
		JobTitle:       c.FormValue("job-title"),
		JobDescription: c.FormValue("job-description"),
	}
	if header, err := c.FormFile("file"); err == nil {
		form.File = pdfrenderer.FileFromHeader(header)
	}

	validation := ValidateFormData(form, serverHandler.ServerConfig.MaxUploadBytes)
	if !validation.IsValid {
		Logger.Info("Rejected resume upload", "errors", validation.Errors)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":  "Validation failed",
			"code":   CodeValidationFailed,
			"errors": validation.Errors,
		})
	}

	resume, job, err := serverHandler.StartAnalysis(form)
	if err != nil {
		appErr := asAppError(err, CodeUploadFailed)
		return RespondError(c, statusFor(appErr.Code), appErr)
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"id":    resume.ID,
		"jobId": job.ID.String(),
		"steps": database.AnalysisSteps,
	})
}

// GetResumes lists every resume, newest first
// @Summary List resumes
// @Tags Resumes
// @Produce json
// @Success 200 {array} database.Resume "Resumes"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /resumes [get]
func (serverHandler *ServerHandler) GetResumes(c echo.Context) error {
	resumes, err := database.ListResumes(serverHandler.DB)
	if err != nil {
		Logger.Error("Failed to list resumes", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve resumes",
		})
	}
	return c.JSON(http.StatusOK, resumes)
}

// GetResume returns one resume with its feedback
// @Summary Get resume by ID
// @Tags Resumes
// @Produce json
// @Param id path string true "Resume ID"
// @Success 200 {object} database.Resume "Resume"
// @Failure 404 {object} map[string]interface{} "Resume not found"
// @Router /resume/{id} [get]
func (serverHandler *ServerHandler) GetResume(c echo.Context) error {
	resume, err := database.GetResume(serverHandler.DB, c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Resume not found",
		})
	}
	if err != nil {
		Logger.Error("Failed to get resume", "id", c.Param("id"), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve resume",
		})
	}
	return c.JSON(http.StatusOK, resume)
}

// DeleteResume removes a resume and its stored files
// @Summary Delete resume
// @Tags Resumes
// @Produce json
// @Param id path string true "Resume ID"
// @Success 200 {object} map[string]interface{} "Deleted"
// @Failure 404 {object} map[string]interface{} "Resume not found"
// @Router /resume/{id} [delete]
func (serverHandler *ServerHandler) DeleteResume(c echo.Context) error {
	id := c.Param("id")
	resume, err := database.GetResume(serverHandler.DB, id)
	if errors.Is(err, database.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Resume not found",
		})
	}
	if err != nil {
		Logger.Error("Failed to get resume", "id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to delete resume",
		})
	}

	for _, url := range []string{resume.ResumePath, resume.ImagePath} {
		if path, ok := storedPath(url); ok {
			serverHandler.removeStored(path)
		}
	}
	if err := database.DeleteResume(serverHandler.DB, id); err != nil {
		Logger.Error("Failed to delete resume", "id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to delete resume",
		})
	}

	Logger.Info("Resume deleted", "id", id)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Resume deleted",
		"id":      id,
	})
}
