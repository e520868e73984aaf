// Package driver defines the contract the orchestration core requires
// from the layer that actually operates the remote prediction service.
// Implementations own all page inspection and raw-text status parsing;
// the core only ever sees the canonical Status values below.
package driver

import "context"

// Status is the canonical classification of a remote job's state as
// reported by one poll.
type Status string

const (
	StatusQueued    Status = "Queued"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusUnknown   Status = "Unknown"
)

// Terminal reports whether a poll result ends the monitoring loop.
// Unknown is always transient, never terminal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobSpec carries the inputs for one submission.
type JobSpec struct {
	JobName         string
	ProteinSequence string
	DNASequence     string
}

// Driver is the execution collaborator: one stateful session against the
// remote service. At most one controller may hold a Driver at a time.
type Driver interface {
	// Submit pushes one job and returns the service-assigned job id,
	// stable for the job's remaining lifetime.
	Submit(ctx context.Context, spec JobSpec) (string, error)

	// PollStatus reads the job's current state. Implementations return
	// StatusUnknown (not an error) when the page state is ambiguous;
	// errors are reserved for failures of the poll itself.
	PollStatus(ctx context.Context, jobID string) (Status, error)

	// Download retrieves the job's result archive(s) into destDir.
	Download(ctx context.Context, jobID, destDir string) error
}
