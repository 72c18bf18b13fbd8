package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/drummonds/resumefeedback/feedback"
	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ErrNotFound is returned when a key or job does not exist
var ErrNotFound = errors.New("not found")

// ResumeKeyPrefix namespaces resume records in the key-value store
const ResumeKeyPrefix = "resume:"

// KVItem is one key-value record
type KVItem struct {
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// ResumeStatus is where a resume is in its lifecycle
type ResumeStatus string

const (
	ResumeStatusDraft    ResumeStatus = "draft"
	ResumeStatusAnalyzed ResumeStatus = "analyzed"
	ResumeStatusArchived ResumeStatus = "archived"
	ResumeStatusFailed   ResumeStatus = "failed"
)

// Resume is an uploaded resume with its rendered preview and feedback
type Resume struct {
	ID             string             `json:"id"`
	CompanyName    string             `json:"companyName,omitempty"`
	JobTitle       string             `json:"jobTitle,omitempty"`
	JobDescription string             `json:"jobDescription,omitempty"`
	ImagePath      string             `json:"imagePath"`
	ResumePath     string             `json:"resumePath"`
	Feedback       *feedback.Feedback `json:"feedback"`
	Status         ResumeStatus       `json:"status,omitempty"`
	Error          string             `json:"error,omitempty"`
	JobID          string             `json:"jobId,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// Repository defines database operations
type Repository interface {
	Close() error
	// Key-value methods
	KVGet(key string) (*KVItem, error)
	KVSet(key string, value string) error
	KVDelete(key string) error
	KVList(prefix string) ([]KVItem, error)
	// Job tracking methods
	CreateJob(jobType JobType, message string) (*Job, error)
	UpdateJobProgress(jobID ulid.ULID, progress int, currentStep string) error
	UpdateJobStatus(jobID ulid.ULID, status JobStatus, message string) error
	UpdateJobError(jobID ulid.ULID, errorMsg string) error
	CompleteJob(jobID ulid.ULID, result string) error
	GetJob(jobID ulid.ULID) (*Job, error)
	GetRecentJobs(jobType JobType, limit, offset int) ([]Job, error)
	GetActiveJobs() ([]Job, error)
	DeleteOldJobs(olderThan time.Duration) (int, error)
}

// ResumeKey is the store key of a resume id
func ResumeKey(id string) string {
	return ResumeKeyPrefix + id
}

// NewResumeID generates a sortable resume id
func NewResumeID() (string, error) {
	id, err := CalculateUUID(time.Now())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// SaveResume writes the resume record, stamping UpdatedAt
func SaveResume(db Repository, resume *Resume) error {
	if resume.ID == "" {
		return errors.New("resume has no id")
	}
	now := time.Now()
	if resume.CreatedAt.IsZero() {
		resume.CreatedAt = now
	}
	resume.UpdatedAt = now
	data, err := json.Marshal(resume)
	if err != nil {
		return fmt.Errorf("failed to encode resume %s: %w", resume.ID, err)
	}
	if err := db.KVSet(ResumeKey(resume.ID), string(data)); err != nil {
		Logger.Error("Unable to save resume", "id", resume.ID, "error", err)
		return err
	}
	return nil
}

// GetResume reads one resume record
func GetResume(db Repository, id string) (*Resume, error) {
	item, err := db.KVGet(ResumeKey(id))
	if err != nil {
		return nil, err
	}
	return decodeResume(item)
}

// ListResumes returns every resume, newest first
func ListResumes(db Repository) ([]Resume, error) {
	items, err := db.KVList(ResumeKeyPrefix)
	if err != nil {
		return nil, err
	}
	resumes := make([]Resume, 0, len(items))
	for i := range items {
		resume, err := decodeResume(&items[i])
		if err != nil {
			Logger.Warn("Skipping unreadable resume record", "key", items[i].Key, "error", err)
			continue
		}
		resumes = append(resumes, *resume)
	}
	sort.Slice(resumes, func(i, j int) bool {
		return resumes[i].CreatedAt.After(resumes[j].CreatedAt)
	})
	return resumes, nil
}

// DeleteResume removes a resume record
func DeleteResume(db Repository, id string) error {
	return db.KVDelete(ResumeKey(id))
}

func decodeResume(item *KVItem) (*Resume, error) {
	var resume Resume
	if err := json.Unmarshal([]byte(item.Value), &resume); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", item.Key, err)
	}
	if resume.ID == "" {
		resume.ID = strings.TrimPrefix(item.Key, ResumeKeyPrefix)
	}
	return &resume, nil
}

// CalculateUUID creates a ULID from the supplied time
func CalculateUUID(time time.Time) (ulid.ULID, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.UnixNano())), 0)
	newULID, err := ulid.New(ulid.Timestamp(time), entropy)
	if err != nil {
		return newULID, err
	}
	return newULID, nil
}
