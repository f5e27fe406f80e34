// Package worker runs background jobs. Jobs are rows in the jobs table, so
// any process can pick up work another one left behind.
package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/jobs"
	"github.com/bibliotech/bibliotech/pkg/loans"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
)

var processID = randStringBytes(8)

type Worker struct {
	config *config.Config
	log    logger.Logger

	processFuncs map[string]func(ctx context.Context, job *models.Job) error

	jobService  *jobs.Service
	loanService *loans.Service

	queue          chan *models.Job
	shutdown       chan struct{}
	doneFetching   chan struct{}
	doneProcessing chan struct{}
	doneScheduling chan struct{}
}

func New(cfg *config.Config, jobService *jobs.Service, loanService *loans.Service) *Worker {
	w := &Worker{
		config: cfg,
		log:    logger.New(),

		jobService:  jobService,
		loanService: loanService,

		queue:          make(chan *models.Job, cfg.WorkerProcesses),
		shutdown:       make(chan struct{}),
		doneFetching:   make(chan struct{}),
		doneProcessing: make(chan struct{}, cfg.WorkerProcesses),
		doneScheduling: make(chan struct{}),
	}

	w.processFuncs = map[string]func(ctx context.Context, job *models.Job) error{
		models.JobTypeMarkOverdue: w.ProcessMarkOverdueJob,
	}

	return w
}

func (w *Worker) Start() {
	go w.fetchJobs()
	go w.scheduleJobs()
	for i := 0; i < w.config.WorkerProcesses; i++ {
		go w.processJobs()
	}
}

func (w *Worker) fetchJobs() {
	duration := 5 * time.Second
	timer := time.NewTimer(duration)

	for {
		select {
		case <-w.shutdown:
			// We're shutting down, so stop adding more jobs to the queue.
			w.doneFetching <- struct{}{}
			return
		case <-timer.C:
			j, err := w.jobService.ListJobs(context.Background(), jobs.ListJobsOptions{
				Limit:              pointerutil.Int(1),
				Statuses:           []string{models.JobStatusPending, models.JobStatusInProgress},
				ProcessIDToExclude: &processID,
			})
			if err != nil {
				w.log.Err(err).Error("list jobs error")
				timer.Reset(duration)
				continue
			}
			for _, job := range j {
				w.queue <- job
			}
			timer.Reset(duration)
		}
	}
}

// scheduleJobs enqueues a mark_overdue job every OverdueSweepInterval. A zero
// interval leaves the sweep to on-demand requests.
func (w *Worker) scheduleJobs() {
	if w.config.OverdueSweepInterval <= 0 {
		<-w.shutdown
		w.doneScheduling <- struct{}{}
		return
	}

	ticker := time.NewTicker(w.config.OverdueSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			w.doneScheduling <- struct{}{}
			return
		case <-ticker.C:
			if _, err := w.ScheduleMarkOverdue(context.Background()); err != nil {
				w.log.Err(err).Error("schedule job error")
			}
		}
	}
}

// ScheduleMarkOverdue creates a mark_overdue job unless one is already
// pending or running. It reports whether a job was created.
func (w *Worker) ScheduleMarkOverdue(ctx context.Context) (bool, error) {
	hasActive, err := w.jobService.HasActiveJobByType(ctx, models.JobTypeMarkOverdue)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if hasActive {
		return false, nil
	}

	err = w.jobService.CreateJob(ctx, &models.Job{
		Type:       models.JobTypeMarkOverdue,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobMarkOverdueData{Trigger: "schedule"},
	})
	if err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

func (w *Worker) processJobs() {
	for {
		select {
		case <-w.shutdown:
			w.doneProcessing <- struct{}{}
			return
		case job := <-w.queue:
			w.process(job)
		}
	}
}

func (w *Worker) process(job *models.Job) {
	// Prep the context to be passed down to the process function.
	id, err := uuid.NewRandom()
	if err != nil {
		w.log.Err(err).Error("new uuid error")
		return
	}
	log := w.log.ID(id.String()).Root(logger.Data{"job_id": job.ID, "type": job.Type, "process_id": processID})
	ctx := log.WithContext(context.Background())

	claimed, err := w.jobService.ClaimJob(ctx, job, processID)
	if err != nil {
		log.Err(err).Error("claim job error")
		return
	}
	if !claimed {
		log.Debug("job claimed by another process")
		return
	}

	// Find and invoke the appropriate process function.
	fn, ok := w.processFuncs[job.Type]
	if !ok {
		err = errors.Errorf("no process function for job type %q", job.Type)
	} else {
		err = fn(ctx, job)
	}
	if err != nil {
		log.Err(err).Error("process error")
	}

	// Completed and failed jobs are not picked up again.
	if err := w.jobService.FinishJob(ctx, job, err); err != nil {
		log.Err(err).Error("finish job error")
	}
}

// ProcessMarkOverdueJob sweeps pending loans past their due date and records
// how many were marked on the job.
func (w *Worker) ProcessMarkOverdueJob(ctx context.Context, job *models.Job) error {
	marked, err := w.loanService.MarkOverdue(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	data, ok := job.DataParsed.(*models.JobMarkOverdueData)
	if !ok {
		data = &models.JobMarkOverdueData{}
	}
	data.Marked = marked
	job.DataParsed = data
	return nil
}

func (w *Worker) Shutdown() {
	close(w.shutdown)

	<-w.doneFetching
	<-w.doneScheduling
	for i := 0; i < w.config.WorkerProcesses; i++ {
		<-w.doneProcessing
	}
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
