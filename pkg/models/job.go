package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobTypeMarkOverdue = "mark_overdue"
)

type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID         int         `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Type       string      `bun:",nullzero" json:"type"`
	Status     string      `bun:",nullzero" json:"status"`
	Data       string      `bun:",nullzero" json:"-"`
	DataParsed interface{} `bun:"-" json:"data"`
	ProcessID  *string     `json:"process_id,omitempty"`
	Error      *string     `json:"error,omitempty"`
}

func (job *Job) UnmarshalData() error {
	switch job.Type {
	case JobTypeMarkOverdue:
		job.DataParsed = &JobMarkOverdueData{}
	default:
		return errors.Errorf("unknown job type %q", job.Type)
	}

	err := json.Unmarshal([]byte(job.Data), job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

type JobMarkOverdueData struct {
	// Trigger says what enqueued the job, e.g. "schedule" or "manual".
	Trigger string `json:"trigger"`
	// Marked is filled in once the job has run.
	Marked int `json:"marked"`
}
