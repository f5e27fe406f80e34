package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	ImportTypeAuthors = "authors"
	ImportTypeBooks   = "books"
	ImportTypeMembers = "members"
)

// ImportRun is the audit entry written once per spreadsheet import.
type ImportRun struct {
	bun.BaseModel `bun:"table:import_runs,alias:ir"`

	ID            int               `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Type          string            `bun:",nullzero" json:"type"`
	FilePath      string            `json:"file_path"`
	UserID        *int              `json:"user_id,omitempty"`
	TotalRows     int               `json:"total_rows"`
	Created       int               `json:"created"`
	Updated       int               `json:"updated"`
	Skipped       int               `json:"skipped"`
	ErrorCount    int               `json:"error_count"`
	Details       string            `bun:",nullzero" json:"-"`
	DetailsParsed *ImportRunDetails `bun:"-" json:"details,omitempty"`
	Notes         *string           `json:"notes,omitempty"`

	// Relations
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

type ImportRunDetails struct {
	Errors         []string `json:"errors"`
	AuthorsCreated int      `json:"authors_created,omitempty"`
	CopiesCreated  int      `json:"copies_created,omitempty"`
	UsersCreated   int      `json:"users_created,omitempty"`
}

func (run *ImportRun) MarshalDetails() error {
	if run.DetailsParsed == nil {
		return nil
	}
	data, err := json.Marshal(run.DetailsParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	run.Details = string(data)
	return nil
}

func (run *ImportRun) UnmarshalDetails() error {
	if run.Details == "" {
		return nil
	}
	run.DetailsParsed = &ImportRunDetails{}
	return errors.WithStack(json.Unmarshal([]byte(run.Details), run.DetailsParsed))
}
