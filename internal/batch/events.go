package batch

import (
	"fmt"

	"foldbatch/internal/model"
)

// EventKind discriminates the progress stream messages.
type EventKind string

const (
	EventStatusLine     EventKind = "status_line"
	EventJobStarted     EventKind = "job_started"
	EventJobSubmitted   EventKind = "job_submitted"
	EventJobCompleted   EventKind = "job_completed"
	EventJobFailed      EventKind = "job_failed"
	EventQuotaReached   EventKind = "quota_reached"
	EventBatchCompleted EventKind = "batch_completed"
)

// ProgressEvent is one message on the one-way stream from the
// orchestration worker to the presentation layer. The worker never waits
// on consumption; slow consumers lose events rather than stall the run.
type ProgressEvent struct {
	Kind    EventKind
	Message string
	Job     *model.Job
	Run     *model.BatchRun
}

func (c *Controller) emit(ev ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eventsClosed {
		// finalize already closed the stream; a late Pause/Resume
		// status line must not panic the process
		return
	}
	select {
	case c.events <- ev:
	default:
		// consumer is behind; drop rather than block the loop
	}
}

func (c *Controller) emitStatus(format string, args ...any) {
	c.emit(ProgressEvent{Kind: EventStatusLine, Message: fmt.Sprintf(format, args...)})
}
