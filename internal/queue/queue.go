// Package queue holds the ordered job lists for one batch run. Insertion
// order is the only scheduling policy: no reordering, no deduplication,
// no priorities.
package queue

import (
	"foldbatch/internal/model"
	"foldbatch/internal/runstore"
)

type Queue struct {
	pending   []model.Job
	completed []model.Job
	failed    []model.Job
}

func New() *Queue {
	return &Queue{
		pending:   []model.Job{},
		completed: []model.Job{},
		failed:    []model.Job{},
	}
}

// Enqueue replaces the pending list. Jobs without a lifecycle status yet
// enter as queued.
func (q *Queue) Enqueue(jobs []model.Job) {
	q.pending = make([]model.Job, len(jobs))
	copy(q.pending, jobs)
	for i := range q.pending {
		if q.pending[i].Status == "" {
			q.pending[i].Status = model.StatusQueued
		}
	}
}

// DequeueNext removes and returns the head of the pending list.
func (q *Queue) DequeueNext() (model.Job, bool) {
	if len(q.pending) == 0 {
		return model.Job{}, false
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return job, true
}

// Requeue puts a job back at the head of the pending list, for an
// in-flight job interrupted before reaching a terminal state.
func (q *Queue) Requeue(job model.Job) {
	q.pending = append([]model.Job{job}, q.pending...)
}

func (q *Queue) AppendCompleted(job model.Job) {
	q.completed = append(q.completed, job)
}

func (q *Queue) AppendFailed(job model.Job) {
	q.failed = append(q.failed, job)
}

func (q *Queue) PendingCount() int   { return len(q.pending) }
func (q *Queue) CompletedCount() int { return len(q.completed) }
func (q *Queue) FailedCount() int    { return len(q.failed) }

// Completed returns a copy of the completed list.
func (q *Queue) Completed() []model.Job {
	out := make([]model.Job, len(q.completed))
	copy(out, q.completed)
	return out
}

// Failed returns a copy of the failed list.
func (q *Queue) Failed() []model.Job {
	out := make([]model.Job, len(q.failed))
	copy(out, q.failed)
	return out
}

// Snapshot captures the current state for persistence.
func (q *Queue) Snapshot() model.QueueSnapshot {
	snap := model.QueueSnapshot{
		JobsQueue:     make([]model.Job, len(q.pending)),
		CompletedJobs: make([]model.Job, len(q.completed)),
		FailedJobs:    make([]model.Job, len(q.failed)),
	}
	copy(snap.JobsQueue, q.pending)
	copy(snap.CompletedJobs, q.completed)
	copy(snap.FailedJobs, q.failed)
	return snap
}

// Persist writes the current state through the store.
func (q *Queue) Persist(store *runstore.Store) error {
	return store.SaveSnapshot(q.Snapshot())
}

// Restore loads the last snapshot from the store, defaulting to empty
// lists when none exists. A job stuck in a non-terminal working state by
// a previous crash rejoins the head of the pending list.
func (q *Queue) Restore(store *runstore.Store) error {
	snap, err := store.LoadSnapshot()
	if err != nil {
		return err
	}
	q.pending = snap.JobsQueue
	q.completed = snap.CompletedJobs
	q.failed = snap.FailedJobs
	for i := range q.pending {
		switch q.pending[i].Status {
		case "", model.StatusQueued:
			q.pending[i].Status = model.StatusQueued
		default:
			// interrupted mid-flight; monitoring state allows the
			// explicit transition back, everything else is forced
			if model.CanTransition(q.pending[i].Status, model.StatusQueued) {
				_ = model.TransitionJob(&q.pending[i], model.StatusQueued)
			} else {
				q.pending[i].Status = model.StatusQueued
			}
		}
	}
	return nil
}
