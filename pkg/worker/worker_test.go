package worker

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/jobs"
	"github.com/bibliotech/bibliotech/pkg/loans"
	"github.com/bibliotech/bibliotech/pkg/migrations"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testContext struct {
	ctx        context.Context
	db         *bun.DB
	jobService *jobs.Service
	worker     *Worker
}

func newTestContext(t *testing.T) *testContext {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	cfg := config.NewForTest()
	jobService := jobs.NewService(db)
	loanService := loans.NewService(db, cfg, notify.NewLogNotifier())

	return &testContext{
		ctx:        context.Background(),
		db:         db,
		jobService: jobService,
		worker:     New(cfg, jobService, loanService),
	}
}

// createLoan lends a fresh copy with the given due date.
func (tc *testContext) createLoan(t *testing.T, dueAt time.Time) *models.Loan {
	t.Helper()
	now := time.Now()

	author := &models.Author{CreatedAt: now, UpdatedAt: now, Name: "Ana María", Surname: "Matute"}
	_, err := tc.db.NewInsert().Model(author).Exec(tc.ctx)
	require.NoError(t, err)
	book := &models.Book{CreatedAt: now, UpdatedAt: now, Title: "Primera memoria", AuthorID: author.ID}
	_, err = tc.db.NewInsert().Model(book).Exec(tc.ctx)
	require.NoError(t, err)
	cp := &models.Copy{CreatedAt: now, UpdatedAt: now, BookID: book.ID, Code: book.Title, Status: models.CopyStatusLoaned}
	_, err = tc.db.NewInsert().Model(cp).Exec(tc.ctx)
	require.NoError(t, err)
	member := &models.Member{
		CreatedAt: now, UpdatedAt: now, Name: "Luis", Surname: "Cernuda",
		Identification: book.Title, Email: "luis@example.com", IsActive: true,
	}
	_, err = tc.db.NewInsert().Model(member).Exec(tc.ctx)
	require.NoError(t, err)

	loan := &models.Loan{
		CreatedAt: now, UpdatedAt: now, MemberID: member.ID, CopyID: cp.ID,
		LoanedAt: dueAt.AddDate(0, 0, -30), DueAt: dueAt, Status: models.LoanStatusPending,
	}
	_, err = tc.db.NewInsert().Model(loan).Exec(tc.ctx)
	require.NoError(t, err)
	return loan
}

func TestScheduleMarkOverdue_SkipsWhenActive(t *testing.T) {
	t.Parallel()
	tc := newTestContext(t)

	created, err := tc.worker.ScheduleMarkOverdue(tc.ctx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = tc.worker.ScheduleMarkOverdue(tc.ctx)
	require.NoError(t, err)
	assert.False(t, created)

	all, err := tc.jobService.ListJobs(tc.ctx, jobs.ListJobsOptions{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.JobTypeMarkOverdue, all[0].Type)
	assert.Equal(t, models.JobStatusPending, all[0].Status)
}

func TestProcess_MarksLoansOverdue(t *testing.T) {
	t.Parallel()
	tc := newTestContext(t)

	late := tc.createLoan(t, models.Today().AddDate(0, 0, -3))

	_, err := tc.worker.ScheduleMarkOverdue(tc.ctx)
	require.NoError(t, err)
	pending, err := tc.jobService.ListJobs(tc.ctx, jobs.ListJobsOptions{})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	tc.worker.process(pending[0])

	job, err := tc.jobService.RetrieveJob(tc.ctx, jobs.RetrieveJobOptions{ID: &pending[0].ID})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	data, ok := job.DataParsed.(*models.JobMarkOverdueData)
	require.True(t, ok)
	assert.Equal(t, 1, data.Marked)
	assert.Equal(t, "schedule", data.Trigger)

	loan := &models.Loan{}
	require.NoError(t, tc.db.NewSelect().Model(loan).Where("l.id = ?", late.ID).Scan(tc.ctx))
	assert.Equal(t, models.LoanStatusOverdue, loan.Status)

	// A completed job doesn't block the next sweep.
	created, err := tc.worker.ScheduleMarkOverdue(tc.ctx)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestProcess_UnknownTypeFails(t *testing.T) {
	t.Parallel()
	tc := newTestContext(t)

	job := &models.Job{Type: "rebuild_index", Status: models.JobStatusPending}
	_, err := tc.db.NewInsert().Model(job).Exec(tc.ctx)
	require.NoError(t, err)

	tc.worker.process(job)

	found := &models.Job{}
	require.NoError(t, tc.db.NewSelect().Model(found).Where("j.id = ?", job.ID).Scan(tc.ctx))
	assert.Equal(t, models.JobStatusFailed, found.Status)
	require.NotNil(t, found.Error)
	assert.Contains(t, *found.Error, "rebuild_index")
}
