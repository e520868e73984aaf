package runstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"foldbatch/internal/model"
)

const (
	queueFileName      = "job_queue.json"
	summaryFileName    = "batch_summary.json"
	summaryCSVFileName = "batch_summary.csv"
	manifestFileName   = "failed_jobs.json"
	jobTrackingDirName = "job_tracking"
)

// Store resolves paths and reads/writes the run artifacts for one output
// directory. All writes are atomic (see WriteBytes).
type Store struct {
	outputDir string
}

func New(outputDir string) (*Store, error) {
	dir := strings.TrimSpace(outputDir)
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := Mkdir(dir); err != nil {
		return nil, err
	}
	return &Store{outputDir: dir}, nil
}

func (s *Store) OutputDir() string {
	return s.outputDir
}

func (s *Store) QueuePath() string {
	return filepath.Join(s.outputDir, queueFileName)
}

func (s *Store) SummaryPath() string {
	return filepath.Join(s.outputDir, summaryFileName)
}

func (s *Store) SummaryCSVPath() string {
	return filepath.Join(s.outputDir, summaryCSVFileName)
}

// ManifestPath is where the failure manifest for retry passes lives.
func (s *Store) ManifestPath() string {
	return filepath.Join(s.outputDir, manifestFileName)
}

func (s *Store) JobDir(jobID string) string {
	return filepath.Join(s.outputDir, jobID)
}

// SaveSnapshot persists the full queue state to job_queue.json.
func (s *Store) SaveSnapshot(snap model.QueueSnapshot) error {
	snap.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return WriteJSON(s.QueuePath(), snap)
}

// LoadSnapshot restores the last snapshot. A missing file is not an
// error: it yields an empty snapshot, for a first run.
func (s *Store) LoadSnapshot() (model.QueueSnapshot, error) {
	var snap model.QueueSnapshot
	if _, err := os.Stat(s.QueuePath()); os.IsNotExist(err) {
		return model.QueueSnapshot{
			JobsQueue:     []model.Job{},
			CompletedJobs: []model.Job{},
			FailedJobs:    []model.Job{},
		}, nil
	}
	if err := ReadJSON(s.QueuePath(), &snap); err != nil {
		return model.QueueSnapshot{}, err
	}
	if snap.JobsQueue == nil {
		snap.JobsQueue = []model.Job{}
	}
	if snap.CompletedJobs == nil {
		snap.CompletedJobs = []model.Job{}
	}
	if snap.FailedJobs == nil {
		snap.FailedJobs = []model.Job{}
	}
	return snap, nil
}

// ClearSnapshot removes the queue file, for a completed run whose state
// has been folded into the summary.
func (s *Store) ClearSnapshot() error {
	if err := os.Remove(s.QueuePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear queue snapshot: %w", err)
	}
	return nil
}

// SaveJob writes the per-job snapshot used for individual status lookup.
func (s *Store) SaveJob(job model.Job) error {
	if strings.TrimSpace(job.JobID) == "" {
		return fmt.Errorf("job %q has no id to save under", job.JobName)
	}
	path := filepath.Join(s.outputDir, jobTrackingDirName, fmt.Sprintf("job_%s.json", job.JobID))
	return WriteJSON(path, job)
}

// LoadJob reads a per-job snapshot back by id.
func (s *Store) LoadJob(jobID string) (model.Job, error) {
	var job model.Job
	path := filepath.Join(s.outputDir, jobTrackingDirName, fmt.Sprintf("job_%s.json", jobID))
	if err := ReadJSON(path, &job); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

// ListTrackedJobs returns every per-job snapshot in the tracking dir.
func (s *Store) ListTrackedJobs() ([]model.Job, error) {
	dir := filepath.Join(s.outputDir, jobTrackingDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Job{}, nil
		}
		return nil, fmt.Errorf("read job tracking directory %s: %w", dir, err)
	}
	jobs := make([]model.Job, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "job_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		var job model.Job
		if err := ReadJSON(filepath.Join(dir, name), &job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
