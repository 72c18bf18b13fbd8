package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunKVItem represents the kv_items table for Bun ORM
type BunKVItem struct {
	bun.BaseModel `bun:"table:kv_items,alias:kv"`

	Key        string    `bun:"kv_key,pk"`
	Value      string    `bun:"kv_value,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	ModifiedAt time.Time `bun:"modified_at,notnull,default:current_timestamp"`
}

// ToKVItem converts BunKVItem to KVItem
func (bi *BunKVItem) ToKVItem() *KVItem {
	return &KVItem{
		Key:      bi.Key,
		Value:    bi.Value,
		Created:  bi.CreatedAt,
		Modified: bi.ModifiedAt,
	}
}

// BunJob represents the jobs table for Bun ORM
type BunJob struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID          string     `bun:"id,pk"` // ULID as string
	Type        string     `bun:"type,notnull"`
	Status      string     `bun:"status,default:'pending'"`
	Progress    int        `bun:"progress,default:0"`
	CurrentStep string     `bun:"current_step,default:''"`
	TotalSteps  int        `bun:"total_steps,default:0"`
	Message     string     `bun:"message,default:''"`
	Error       string     `bun:"error,nullzero"`
	Result      string     `bun:"result,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	StartedAt   *time.Time `bun:"started_at,nullzero"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

// ToJob converts BunJob to Job
func (bj *BunJob) ToJob() (*Job, error) {
	parsedULID, err := ulid.Parse(bj.ID)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:          parsedULID,
		Type:        JobType(bj.Type),
		Status:      JobStatus(bj.Status),
		Progress:    bj.Progress,
		CurrentStep: bj.CurrentStep,
		TotalSteps:  bj.TotalSteps,
		Message:     bj.Message,
		Error:       bj.Error,
		Result:      bj.Result,
		CreatedAt:   bj.CreatedAt,
		UpdatedAt:   bj.UpdatedAt,
		StartedAt:   bj.StartedAt,
		CompletedAt: bj.CompletedAt,
	}, nil
}

// FromJob converts Job to BunJob
func FromJob(job *Job) *BunJob {
	return &BunJob{
		ID:          job.ID.String(),
		Type:        string(job.Type),
		Status:      string(job.Status),
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		TotalSteps:  job.TotalSteps,
		Message:     job.Message,
		Error:       job.Error,
		Result:      job.Result,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}

// bunMigration records an applied schema migration
type bunMigration struct {
	bun.BaseModel `bun:"table:bun_schema_migrations"`

	Version   string    `bun:"version,pk"`
	Name      string    `bun:"name,notnull"`
	AppliedAt time.Time `bun:"applied_at,notnull,default:current_timestamp"`
}
