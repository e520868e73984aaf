package runstore

import (
	"testing"

	"foldbatch/internal/model"
)

func TestSaveAndLoadSnapshot_RoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	snap := model.QueueSnapshot{
		JobsQueue: []model.Job{
			{JobName: "job-a", Status: model.StatusQueued},
			{JobName: "job-b", Status: model.StatusQueued},
		},
		CompletedJobs: []model.Job{
			{JobName: "job-c", JobID: "af-1", Status: model.StatusDownloaded},
		},
		FailedJobs: []model.Job{},
	}
	if err := store.SaveSnapshot(snap); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	loaded, err := store.LoadSnapshot()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if loaded.Timestamp == "" {
		t.Fatalf("expected snapshot timestamp to be set")
	}
	if len(loaded.JobsQueue) != 2 || len(loaded.CompletedJobs) != 1 || len(loaded.FailedJobs) != 0 {
		t.Fatalf("unexpected snapshot shape: %+v", loaded)
	}
	if loaded.JobsQueue[0].JobName != "job-a" {
		t.Fatalf("pending order not preserved: %q", loaded.JobsQueue[0].JobName)
	}
}

func TestLoadSnapshot_MissingFileYieldsEmptyLists(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	snap, err := store.LoadSnapshot()
	if err != nil {
		t.Fatalf("load snapshot without file: %v", err)
	}
	if snap.JobsQueue == nil || snap.CompletedJobs == nil || snap.FailedJobs == nil {
		t.Fatalf("expected non-nil empty lists, got %+v", snap)
	}
	if len(snap.JobsQueue)+len(snap.CompletedJobs)+len(snap.FailedJobs) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestSaveJob_RequiresID(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := store.SaveJob(model.Job{JobName: "no-id"}); err == nil {
		t.Fatalf("expected error saving job without id")
	}

	job := model.Job{JobName: "with-id", JobID: "af-42", Status: model.StatusSubmitted}
	if err := store.SaveJob(job); err != nil {
		t.Fatalf("save job: %v", err)
	}
	loaded, err := store.LoadJob("af-42")
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if loaded.JobName != "with-id" || loaded.Status != model.StatusSubmitted {
		t.Fatalf("unexpected job snapshot: %+v", loaded)
	}

	tracked, err := store.ListTrackedJobs()
	if err != nil {
		t.Fatalf("list tracked jobs: %v", err)
	}
	if len(tracked) != 1 {
		t.Fatalf("expected 1 tracked job, got %d", len(tracked))
	}
}
