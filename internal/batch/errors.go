package batch

import (
	"errors"
	"fmt"
	"time"
)

// ErrStopped reports that a stop or cancellation interrupted a wait at
// one of its suspension points.
var ErrStopped = errors.New("batch stopped")

// SubmissionError means the driver rejected or failed the submit call.
// The job moves to failed and the queue advances after the standard delay.
type SubmissionError struct {
	JobName string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit job %q: %v", e.JobName, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// TimeoutError means monitoring elapsed without a terminal status. The
// remote prediction may still be running, so timed-out jobs are excluded
// from automatic retry.
type TimeoutError struct {
	JobID   string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s did not reach a terminal status within %s", e.JobID, e.Elapsed.Round(time.Second))
}

// DownloadError means completion was detected but result retrieval
// failed. The job id and metadata are retained for out-of-band recovery.
type DownloadError struct {
	JobID string
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download results for job %s: %v", e.JobID, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed snapshot or summary write. Persistence
// is best effort: these are logged as warnings and never abort the batch.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
