package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/drummonds/resumefeedback/database"
	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
	"github.com/drummonds/resumefeedback/feedback"
	"github.com/drummonds/resumefeedback/storage"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// Job progress reported as each step starts
const (
	progressUpload  = 10
	progressConvert = 35
	progressAnalyze = 70
)

// analysisTimeout bounds one background analysis
const analysisTimeout = 5 * time.Minute

// AnalysisResult is stored as the result of a completed analysis job
type AnalysisResult struct {
	ResumeID     string `json:"resumeId"`
	OverallScore int    `json:"overallScore"`
}

// StartAnalysis reads the upload, creates the tracking job and runs the
// pipeline in the background. The returned resume is only persisted once
// both files are stored.
func (serverHandler *ServerHandler) StartAnalysis(form FormData) (*database.Resume, *database.Job, error) {
	// multipart temp files go away with the request, so read now
	data, err := form.File.ReadAll()
	if err != nil {
		return nil, nil, CatalogError(CodeUploadFailed, err.Error())
	}
	if len(data) == 0 {
		return nil, nil, CatalogError(CodeUploadFailed, "uploaded file is empty")
	}

	resumeID, err := database.NewResumeID()
	if err != nil {
		return nil, nil, CatalogError(CodeUploadFailed, err.Error())
	}
	job, err := serverHandler.DB.CreateJob(database.JobTypeResumeAnalysis, fmt.Sprintf("Analyzing %s", form.File.Name))
	if err != nil {
		Logger.Error("Failed to create analysis job", "error", err)
		return nil, nil, CatalogError(CodeServiceUnavailable, err.Error())
	}

	resume := &database.Resume{
		ID:             resumeID,
		CompanyName:    form.CompanyName,
		JobTitle:       form.JobTitle,
		JobDescription: form.JobDescription,
		Status:         database.ResumeStatusDraft,
		JobID:          job.ID.String(),
	}
	file := pdfrenderer.NewFile(form.File.Name, form.File.ContentType, data)

	serverHandler.pipelines.Add(1)
	go func() {
		defer serverHandler.pipelines.Done()
		ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
		defer cancel()
		serverHandler.runAnalysis(ctx, job.ID, resume, file, data)
	}()

	Logger.Info("Resume analysis started", "resumeID", resumeID, "jobID", job.ID, "file", file.Name)
	return resume, job, nil
}

// runAnalysis walks the upload, convert, analyze steps for one resume
func (serverHandler *ServerHandler) runAnalysis(ctx context.Context, jobID ulid.ULID, resume *database.Resume, file *pdfrenderer.File, data []byte) {
	saved := false
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in analysis job", "panic", r, "jobID", jobID)
			serverHandler.failAnalysis(jobID, resume, saved, CatalogError(CodeAnalysisFailed, fmt.Sprintf("panic: %v", r)))
		}
	}()

	db := serverHandler.DB
	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, "Uploading file"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}
	serverHandler.progress(jobID, progressUpload, database.StepUpload)

	var (
		pdfItem    storage.FSItem
		imageItem  storage.FSItem
		converted  pdfrenderer.Result
		resumeText string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		item, err := serverHandler.Store.Upload(gctx, file.Name, "application/pdf", data)
		if err != nil {
			return CatalogError(CodeUploadFailed, err.Error())
		}
		pdfItem = item
		return nil
	})
	g.Go(func() error {
		serverHandler.progress(jobID, progressConvert, database.StepConvert)
		converted = serverHandler.Converter.Convert(gctx, file, serverHandler.conversionOptions())
		if !converted.OK() {
			return CatalogError(CodeConversionFailed, converted.Error)
		}
		// the stored copy replaces the in-memory display URL
		serverHandler.Blobs.Revoke(converted.ImageURL)
		item, err := serverHandler.Store.Upload(gctx, converted.File.Name, converted.File.ContentType, converted.File.Data)
		if err != nil {
			return CatalogError(CodeUploadFailed, err.Error())
		}
		imageItem = item
		return nil
	})
	g.Go(func() error {
		text, err := feedback.ExtractText(data)
		if err != nil {
			Logger.Warn("Unable to extract resume text, analysing the image only", "file", file.Name, "error", err)
			return nil
		}
		resumeText = text
		return nil
	})
	if err := g.Wait(); err != nil {
		serverHandler.removeStored(pdfItem.Path, imageItem.Path)
		serverHandler.failAnalysis(jobID, resume, saved, asAppError(err, CodeUploadFailed))
		return
	}

	resume.ResumePath = fileURL(pdfItem.Path)
	resume.ImagePath = fileURL(imageItem.Path)
	if err := database.SaveResume(db, resume); err != nil {
		serverHandler.failAnalysis(jobID, resume, saved, CatalogError(CodeUploadFailed, err.Error()))
		return
	}
	saved = true

	serverHandler.progress(jobID, progressAnalyze, database.StepAnalyze)
	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, "AI analysis in progress"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}
	if serverHandler.Analyzer == nil {
		serverHandler.failAnalysis(jobID, resume, saved, CatalogError(CodeServiceUnavailable, "no analyzer configured"))
		return
	}
	fb, err := serverHandler.Analyzer.Analyze(ctx, feedback.Request{
		JobTitle:       resume.JobTitle,
		JobDescription: resume.JobDescription,
		ResumeText:     resumeText,
		Image:          converted.File.Data,
		ImageType:      converted.File.ContentType,
	})
	if err != nil {
		code := CodeAnalysisFailed
		if errors.Is(err, feedback.ErrNotConfigured) {
			code = CodeServiceUnavailable
		}
		serverHandler.failAnalysis(jobID, resume, saved, CatalogError(code, err.Error()))
		return
	}

	resume.Feedback = fb
	resume.Status = database.ResumeStatusAnalyzed
	if err := database.SaveResume(db, resume); err != nil {
		serverHandler.failAnalysis(jobID, resume, saved, CatalogError(CodeAnalysisFailed, err.Error()))
		return
	}

	resultJSON, _ := json.Marshal(AnalysisResult{ResumeID: resume.ID, OverallScore: int(fb.OverallScore)})
	if err := db.CompleteJob(jobID, string(resultJSON)); err != nil {
		Logger.Error("Failed to complete job", "jobID", jobID, "error", err)
	}
	Logger.Info("Resume analysis complete", "resumeID", resume.ID, "overallScore", fb.OverallScore)
}

func (serverHandler *ServerHandler) progress(jobID ulid.ULID, percent int, step string) {
	if err := serverHandler.DB.UpdateJobProgress(jobID, percent, step); err != nil {
		Logger.Error("Failed to update job progress", "jobID", jobID, "step", step, "error", err)
	}
}

// failAnalysis records a failed pipeline on the job and, once it exists, the resume
func (serverHandler *ServerHandler) failAnalysis(jobID ulid.ULID, resume *database.Resume, saved bool, appErr *AppError) {
	Logger.Error("Resume analysis failed", "jobID", jobID, "resumeID", resume.ID, "code", appErr.Code, "details", appErr.Details)
	if err := serverHandler.DB.UpdateJobError(jobID, FriendlyMessage(appErr)); err != nil {
		Logger.Error("Failed to record job error", "jobID", jobID, "error", err)
	}
	if !saved {
		return
	}
	resume.Status = database.ResumeStatusFailed
	resume.Error = appErr.Error()
	if err := database.SaveResume(serverHandler.DB, resume); err != nil {
		Logger.Error("Failed to mark resume failed", "resumeID", resume.ID, "error", err)
	}
}

// removeStored deletes files written by a pipeline that did not finish
func (serverHandler *ServerHandler) removeStored(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := serverHandler.Store.Delete(context.Background(), path); err != nil && !errors.Is(err, storage.ErrNotFound) {
			Logger.Warn("Failed to remove stored file", "path", path, "error", err)
		}
	}
}

func asAppError(err error, fallback ErrorCode) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return CatalogError(fallback, err.Error())
}
