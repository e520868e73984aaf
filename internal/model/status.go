package model

import "fmt"

const (
	StatusQueued         = "queued"
	StatusSubmitting     = "submitting"
	StatusSubmitted      = "submitted"
	StatusMonitoring     = "monitoring"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
	StatusTimedOut       = "timed_out"
	StatusDownloading    = "downloading"
	StatusDownloaded     = "downloaded"
	StatusDownloadFailed = "download_failed"
)

var allowedTransitions = map[string]map[string]bool{
	"": {
		StatusQueued: true,
	},
	StatusQueued: {
		StatusQueued:     true,
		StatusSubmitting: true,
	},
	StatusSubmitting: {
		StatusSubmitted: true,
		StatusFailed:    true,
	},
	StatusSubmitted: {
		StatusMonitoring: true,
	},
	StatusMonitoring: {
		StatusMonitoring: true,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusTimedOut:   true,
		StatusQueued:     true, // interrupted run, job rejoins the pending list
	},
	StatusCompleted: {
		StatusDownloading: true,
	},
	StatusDownloading: {
		StatusDownloaded:     true,
		StatusDownloadFailed: true,
	},
	StatusDownloaded:     {},
	StatusFailed:         {},
	StatusTimedOut:       {},
	StatusDownloadFailed: {},
}

// IsTerminal reports whether a job in this status will never move again
// within the current run. TimedOut jobs may still be running remotely
// but are terminal from the controller's point of view.
func IsTerminal(status string) bool {
	switch status {
	case StatusDownloaded, StatusFailed, StatusTimedOut, StatusDownloadFailed:
		return true
	}
	return false
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionJob(job *Job, toStatus string) error {
	from := job.Status
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("invalid job status transition: %q -> %q (job_name=%s job_id=%s)", from, toStatus, job.JobName, job.JobID)
	}
	job.Status = toStatus
	return nil
}
