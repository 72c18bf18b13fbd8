package database

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Finished reports whether the status is terminal
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobType represents the type of job
type JobType string

const (
	JobTypeResumeAnalysis JobType = "resume_analysis"
	JobTypeCleanup        JobType = "cleanup"
)

// ParseJobType accepts the stored job type names
func ParseJobType(s string) (JobType, bool) {
	switch t := JobType(s); t {
	case JobTypeResumeAnalysis, JobTypeCleanup:
		return t, true
	}
	return "", false
}

// Analysis pipeline steps, in order
const (
	StepUpload   = "upload"
	StepConvert  = "convert"
	StepAnalyze  = "analyze"
	StepComplete = "complete"
)

// ProgressStep labels one pipeline step for display
type ProgressStep struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// AnalysisSteps are the steps a resume analysis job walks through
var AnalysisSteps = []ProgressStep{
	{ID: StepUpload, Label: "Uploading file"},
	{ID: StepConvert, Label: "Converting PDF to image"},
	{ID: StepAnalyze, Label: "AI analysis in progress"},
	{ID: StepComplete, Label: "Analysis complete"},
}

// Job represents a background job or operation
type Job struct {
	ID          ulid.ULID  `json:"id"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`         // 0-100
	CurrentStep string     `json:"currentStep"`      // one of the Step constants
	TotalSteps  int        `json:"totalSteps"`       // Total number of steps
	Message     string     `json:"message"`          // Status message
	Error       string     `json:"error,omitempty"`  // Error message if failed
	Result      string     `json:"result,omitempty"` // JSON result data
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
