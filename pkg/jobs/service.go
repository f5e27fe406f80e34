// Package jobs stores background work in the jobs table. Rows are claimed by
// a worker process before they run, so several API processes can share one
// database without running the same job twice.
package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// StaleAfter is how long a job can stay in progress before another process
// may take it over.
const StaleAfter = 15 * time.Minute

type RetrieveJobOptions struct {
	ID *int
}

type ListJobsOptions struct {
	Limit    *int
	Offset   *int
	Statuses []string
	Type     *string
	// ProcessIDToExclude skips jobs already claimed by that process.
	ProcessIDToExclude *string

	includeTotal bool
}

type UpdateJobOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateJob(ctx context.Context, job *models.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.UpdatedAt = job.CreatedAt

	if err := marshalData(job); err != nil {
		return err
	}

	_, err := svc.db.
		NewInsert().
		Model(job).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func marshalData(job *models.Job) error {
	if job.DataParsed == nil {
		return nil
	}
	data, err := json.Marshal(job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	job.Data = string(data)
	return nil
}

func (svc *Service) RetrieveJob(ctx context.Context, opts RetrieveJobOptions) (*models.Job, error) {
	job := &models.Job{}

	q := svc.db.
		NewSelect().
		Model(job)

	if opts.ID != nil {
		q = q.Where("j.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Job")
		}
		return nil, errors.WithStack(err)
	}

	if err := unmarshalData(job); err != nil {
		return nil, err
	}

	return job, nil
}

func unmarshalData(job *models.Job) error {
	if job.Data == "" {
		return nil
	}
	return errors.WithStack(job.UnmarshalData())
}

func (svc *Service) ListJobs(ctx context.Context, opts ListJobsOptions) ([]*models.Job, error) {
	j, _, err := svc.listJobsWithTotal(ctx, opts)
	return j, errors.WithStack(err)
}

func (svc *Service) ListJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	opts.includeTotal = true
	return svc.listJobsWithTotal(ctx, opts)
}

func (svc *Service) listJobsWithTotal(ctx context.Context, opts ListJobsOptions) ([]*models.Job, int, error) {
	jobs := []*models.Job{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&jobs).
		OrderExpr("j.created_at ASC, j.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if len(opts.Statuses) > 0 {
		q = q.Where("j.status IN (?)", bun.In(opts.Statuses))
	}
	if opts.Type != nil {
		q = q.Where("j.type = ?", *opts.Type)
	}
	if opts.ProcessIDToExclude != nil {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("j.process_id IS NULL").
				WhereOr("j.process_id != ?", *opts.ProcessIDToExclude)
		})
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, job := range jobs {
		if err := unmarshalData(job); err != nil {
			return nil, 0, err
		}
	}

	return jobs, total, nil
}

// HasActiveJobByType checks if there's a pending or in-progress job of the given type.
func (svc *Service) HasActiveJobByType(ctx context.Context, jobType string) (bool, error) {
	exists, err := svc.db.NewSelect().
		Model((*models.Job)(nil)).
		Where("type = ?", jobType).
		Where("status IN (?)", bun.In([]string{models.JobStatusPending, models.JobStatusInProgress})).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

// ClaimJob marks the job in progress for processID. Pending jobs can be
// claimed, and so can jobs left in progress for longer than StaleAfter by a
// process that died. When two processes race for a job exactly one of them
// gets true.
func (svc *Service) ClaimJob(ctx context.Context, job *models.Job, processID string) (bool, error) {
	now := time.Now()
	res, err := svc.db.NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", models.JobStatusInProgress).
		Set("process_id = ?", processID).
		Set("updated_at = ?", now).
		Where("id = ?", job.ID).
		Where("status = ? OR (status = ? AND updated_at < ?)",
			models.JobStatusPending, models.JobStatusInProgress, now.Add(-StaleAfter)).
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	if n == 0 {
		return false, nil
	}

	job.Status = models.JobStatusInProgress
	job.ProcessID = &processID
	job.UpdatedAt = now
	return true, nil
}

// FinishJob records the outcome of a claimed job. A nil runErr completes it
// and saves its data; anything else fails it with the error message.
func (svc *Service) FinishJob(ctx context.Context, job *models.Job, runErr error) error {
	if runErr != nil {
		msg := runErr.Error()
		job.Status = models.JobStatusFailed
		job.Error = &msg
		return svc.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"status", "error"}})
	}

	if err := marshalData(job); err != nil {
		return err
	}
	job.Status = models.JobStatusCompleted
	return svc.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"status", "data"}})
}

func (svc *Service) UpdateJob(ctx context.Context, job *models.Job, opts UpdateJobOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	job.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(job).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("Job")
	}

	return nil
}
