package ui

import (
	"strings"
	"testing"

	"foldbatch/internal/batch"
	"foldbatch/internal/model"
)

func TestProgressModelCounts(t *testing.T) {
	m := newProgressModel(nil, 3, nil)

	job := &model.Job{JobName: "alpha"}
	m.apply(batch.ProgressEvent{Kind: batch.EventJobStarted, Job: job, Message: "processing alpha"})
	if m.current != "alpha" {
		t.Fatalf("current = %q, want alpha", m.current)
	}

	m.apply(batch.ProgressEvent{Kind: batch.EventJobCompleted, Job: job})
	if m.done != 1 || m.current != "" {
		t.Fatalf("done = %d current = %q after completion", m.done, m.current)
	}

	m.apply(batch.ProgressEvent{Kind: batch.EventJobFailed, Job: &model.Job{JobName: "beta"}})
	if m.failed != 1 {
		t.Fatalf("failed = %d, want 1", m.failed)
	}

	view := m.View()
	if !strings.Contains(view, "2/3 jobs") {
		t.Fatalf("view missing counter: %q", view)
	}
}

func TestProgressModelFinish(t *testing.T) {
	m := newProgressModel(nil, 1, nil)
	run := &model.BatchRun{RunID: "run-1", Successful: 1}
	m.apply(batch.ProgressEvent{Kind: batch.EventBatchCompleted, Run: run})
	if !m.finished {
		t.Fatal("model not finished after batch completion event")
	}
	view := m.View()
	if !strings.Contains(view, "batch finished") || !strings.Contains(view, "run-1") {
		t.Fatalf("final view missing summary: %q", view)
	}
}

func TestProgressModelLogWindow(t *testing.T) {
	m := newProgressModel(nil, 1, nil)
	for i := 0; i < progressLogLines+4; i++ {
		m.pushLine("line")
	}
	if len(m.lastLines) != progressLogLines {
		t.Fatalf("log window = %d lines, want %d", len(m.lastLines), progressLogLines)
	}
}
