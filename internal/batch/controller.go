// Package batch drives prediction jobs through their full lifecycle
// against a single shared execution session: submit, monitor, download,
// summarize. Jobs run strictly sequentially; the correctness of the
// whole design rests on never having two jobs in flight at once.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"foldbatch/internal/driver"
	"foldbatch/internal/model"
	"foldbatch/internal/queue"
	"foldbatch/internal/runstore"
)

// Options carries the tunables for one controller.
type Options struct {
	SubmissionDelay time.Duration
	PollInterval    time.Duration
	JobTimeout      time.Duration
	MaxDailyJobs    int
}

// Controller owns the batch run: the queue, the quota, and the single
// working slot. Exactly one controller may hold a given driver session.
type Controller struct {
	drv       driver.Driver
	store     *runstore.Store
	queue     *queue.Queue
	poller    *Poller
	collector *Collector
	opts      Options
	logger    *zap.Logger

	events chan ProgressEvent

	mu           sync.Mutex
	running      bool
	paused       bool
	eventsClosed bool
	resumeCh     chan struct{}
	quota        *Quota
	run          *model.BatchRun
	current      *model.Job

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
	cancel   context.CancelFunc
}

func NewController(d driver.Driver, store *runstore.Store, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		drv:       d,
		store:     store,
		queue:     queue.New(),
		poller:    NewPoller(d, opts.PollInterval, opts.JobTimeout, logger),
		collector: NewCollector(d, store, logger),
		opts:      opts,
		logger:    logger,
		events:    make(chan ProgressEvent, 256),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Events exposes the one-way progress stream. The channel is closed when
// the run finalizes.
func (c *Controller) Events() <-chan ProgressEvent {
	return c.events
}

// Done is closed once the run has finalized and all artifacts are
// written.
func (c *Controller) Done() <-chan struct{} {
	return c.doneCh
}

// Run returns the finalized batch summary; valid after Done is closed.
func (c *Controller) Run() *model.BatchRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run
}

// Start begins processing jobs on a background worker. maxPerDay, when
// positive, overrides the configured daily quota.
func (c *Controller) Start(ctx context.Context, jobs []model.Job, maxPerDay int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("batch is already running")
	}
	limit := c.opts.MaxDailyJobs
	if maxPerDay > 0 {
		limit = maxPerDay
	}
	c.quota = NewQuota(limit)
	c.queue.Enqueue(jobs)
	c.run = &model.BatchRun{
		RunID:           uuid.NewString(),
		StartTime:       time.Now().UTC().Format(time.RFC3339),
		TotalJobs:       len(jobs),
		OutputDirectory: c.store.OutputDir(),
	}
	c.running = true

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.loop(runCtx)
	return nil
}

// StartResumed continues a run from a restored queue snapshot, keeping
// already-terminal jobs in their lists.
func (c *Controller) StartResumed(ctx context.Context, maxPerDay int) error {
	if err := c.queue.Restore(c.store); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("batch is already running")
	}
	limit := c.opts.MaxDailyJobs
	if maxPerDay > 0 {
		limit = maxPerDay
	}
	c.quota = NewQuota(limit)
	c.run = &model.BatchRun{
		RunID:           uuid.NewString(),
		StartTime:       time.Now().UTC().Format(time.RFC3339),
		TotalJobs:       c.queue.PendingCount() + c.queue.CompletedCount() + c.queue.FailedCount(),
		OutputDirectory: c.store.OutputDir(),
	}
	c.running = true

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.loop(runCtx)
	return nil
}

// Stop hard-halts the run: the current suspension point is abandoned,
// state is persisted, and the summary finalized. An in-flight driver
// call is not interrupted; only the next iteration is skipped.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	// unblock a paused loop so it can exit
	c.mu.Lock()
	if c.paused {
		c.paused = false
		close(c.resumeCh)
	}
	c.mu.Unlock()
}

// Pause soft-halts the loop at its next suspension point, keeping all
// in-memory state so Resume can continue without re-reading the snapshot.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.running && !c.paused {
		c.paused = true
		c.resumeCh = make(chan struct{})
		c.mu.Unlock()
		c.emitStatus("batch paused")
		return
	}
	c.mu.Unlock()
}

// Resume lifts a pause.
func (c *Controller) Resume() {
	c.mu.Lock()
	if c.paused {
		c.paused = false
		close(c.resumeCh)
		c.mu.Unlock()
		c.emitStatus("batch resumed")
		return
	}
	c.mu.Unlock()
}

func (c *Controller) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// gate blocks while paused. Returns false when the run should end
// instead of continuing.
func (c *Controller) gate(ctx context.Context) bool {
	for {
		c.mu.Lock()
		paused := c.paused
		ch := c.resumeCh
		c.mu.Unlock()
		if !paused {
			return !c.stopped() && ctx.Err() == nil
		}
		select {
		case <-ch:
		case <-c.stopCh:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func (c *Controller) loop(ctx context.Context) {
	defer c.finalize()

	c.emitStatus("starting batch processing of %d jobs", c.run.TotalJobs)

	for {
		if !c.gate(ctx) {
			return
		}

		if c.quota.Exhausted() {
			c.emit(ProgressEvent{
				Kind: EventQuotaReached,
				Message: fmt.Sprintf("daily job limit of %d reached; completed %d jobs successfully",
					c.quota.Limit(), c.queue.CompletedCount()),
			})
			c.logger.Info("daily job limit reached",
				zap.Int("limit", c.quota.Limit()),
				zap.Int("pending", c.queue.PendingCount()))
			return
		}

		job, ok := c.queue.DequeueNext()
		if !ok {
			c.emitStatus("all jobs completed")
			return
		}

		c.setCurrent(&job)
		c.processJob(ctx, &job)
		c.setCurrent(nil)

		if c.queue.PendingCount() == 0 {
			continue // loop once more to emit the completion line
		}
		// fixed inter-submission delay protecting the shared session
		if !sleepInterruptible(ctx, c.opts.SubmissionDelay, c.stopCh) {
			return
		}
	}
}

func (c *Controller) setCurrent(job *model.Job) {
	c.mu.Lock()
	c.current = job
	c.mu.Unlock()
}

// persistQueue snapshots the queue, including the in-flight job at the
// head of the pending list, so a crash re-runs it instead of losing it.
func (c *Controller) persistQueue() {
	snap := c.queue.Snapshot()
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur != nil {
		snap.JobsQueue = append([]model.Job{*cur}, snap.JobsQueue...)
	}
	if err := c.store.SaveSnapshot(snap); err != nil {
		perr := &PersistenceError{Path: c.store.QueuePath(), Err: err}
		c.logger.Warn("queue snapshot failed", zap.Error(perr))
	}
}

func (c *Controller) processJob(ctx context.Context, job *model.Job) {
	c.emit(ProgressEvent{Kind: EventJobStarted, Message: "submitting job: " + job.JobName, Job: cloneJob(job)})

	_ = model.TransitionJob(job, model.StatusSubmitting)
	c.persistQueue() // last consistent state before the blocking submit

	jobID, err := c.drv.Submit(ctx, driver.JobSpec{
		JobName:         job.JobName,
		ProteinSequence: job.ProteinSequence,
		DNASequence:     job.DNASequence,
	})
	if err != nil {
		serr := &SubmissionError{JobName: job.JobName, Err: err}
		c.logger.Error("submission failed", zap.String("job_name", job.JobName), zap.Error(err))
		c.failJob(job, model.StatusFailed, serr.Error())
		return
	}

	job.JobID = jobID
	job.SubmissionTime = time.Now().UTC().Format(time.RFC3339)
	_ = model.TransitionJob(job, model.StatusSubmitted)
	c.quota.Record()
	c.saveJobSnapshot(*job)
	c.emit(ProgressEvent{Kind: EventJobSubmitted, Message: "job submitted: " + jobID, Job: cloneJob(job)})
	c.logger.Info("job submitted",
		zap.String("job_name", job.JobName),
		zap.String("job_id", jobID),
		zap.Int("submitted_today", c.quota.Submitted()))

	_ = model.TransitionJob(job, model.StatusMonitoring)
	c.persistQueue() // before the long monitoring wait

	status, err := c.poller.Await(ctx, job.JobID, c.stopCh)
	switch {
	case errors.Is(err, ErrStopped):
		// the stop interrupted monitoring; the job rejoins the head of
		// the pending list so the next run picks it up again
		_ = model.TransitionJob(job, model.StatusQueued)
		c.queue.Requeue(*job)
		c.setCurrent(nil)
		return
	case err != nil:
		var terr *TimeoutError
		if errors.As(err, &terr) {
			c.logger.Warn("job monitoring timed out",
				zap.String("job_id", job.JobID),
				zap.Duration("elapsed", terr.Elapsed))
			c.failJob(job, model.StatusTimedOut, terr.Error())
			return
		}
		c.failJob(job, model.StatusFailed, err.Error())
		return
	}

	if status == driver.StatusFailed {
		c.failJob(job, model.StatusFailed, "prediction failed on the remote service")
		return
	}

	// Completed: collect results
	_ = model.TransitionJob(job, model.StatusCompleted)
	_ = model.TransitionJob(job, model.StatusDownloading)
	c.persistQueue() // before the blocking download

	resultsPath, err := c.collector.Collect(ctx, job)
	if err != nil {
		c.logger.Error("result download failed",
			zap.String("job_id", job.JobID),
			zap.Error(err))
		// the id and metadata survive so results can be fetched manually
		c.failJob(job, model.StatusDownloadFailed, err.Error())
		return
	}

	job.ResultsPath = resultsPath
	job.DownloadTime = time.Now().UTC().Format(time.RFC3339)
	_ = model.TransitionJob(job, model.StatusDownloaded)
	c.queue.AppendCompleted(*job)
	c.saveJobSnapshot(*job)
	c.setCurrent(nil)
	c.persistQueue()
	c.emit(ProgressEvent{Kind: EventJobCompleted, Message: "results downloaded to " + resultsPath, Job: cloneJob(job)})
	c.logger.Info("job completed",
		zap.String("job_id", job.JobID),
		zap.String("results_path", resultsPath))
}

func (c *Controller) failJob(job *model.Job, status, errMsg string) {
	job.Error = errMsg
	if err := model.TransitionJob(job, status); err != nil {
		// forced: a job on the failure path never stays in a working state
		job.Status = status
	}
	c.queue.AppendFailed(*job)
	if job.JobID != "" {
		c.saveJobSnapshot(*job)
	}
	c.setCurrent(nil)
	c.persistQueue()
	c.emit(ProgressEvent{Kind: EventJobFailed, Message: errMsg, Job: cloneJob(job)})
}

func (c *Controller) saveJobSnapshot(job model.Job) {
	if err := c.store.SaveJob(job); err != nil {
		perr := &PersistenceError{Path: "job snapshot " + job.JobID, Err: err}
		c.logger.Warn("job snapshot failed", zap.Error(perr))
	}
}

func (c *Controller) finalize() {
	c.mu.Lock()
	run := c.run
	c.running = false
	c.mu.Unlock()

	c.persistQueue()

	run.EndTime = time.Now().UTC().Format(time.RFC3339)
	run.Successful = c.queue.CompletedCount()
	run.Failed = c.queue.FailedCount()
	run.CompletedJobs = c.queue.Completed()
	run.FailedJobs = c.queue.Failed()

	c.emit(ProgressEvent{Kind: EventBatchCompleted, Message: "batch finished", Run: run})
	c.logger.Info("batch finalized",
		zap.Int("successful", run.Successful),
		zap.Int("failed", run.Failed),
		zap.String("output_dir", run.OutputDirectory))

	if c.cancel != nil {
		c.cancel()
	}
	// mark the stream closed under the mutex so a concurrent emit
	// either lands before the close or sees the flag and skips
	c.mu.Lock()
	c.eventsClosed = true
	c.mu.Unlock()
	close(c.events)
	close(c.doneCh)
}

func cloneJob(job *model.Job) *model.Job {
	j := *job
	return &j
}
