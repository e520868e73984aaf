package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load missing config: %v", err)
	}
	if cfg.MaxDailyJobs != 30 {
		t.Fatalf("expected default max_daily_jobs 30, got %d", cfg.MaxDailyJobs)
	}
	if cfg.JobSubmissionDelay() != 30*time.Second {
		t.Fatalf("expected default submission delay 30s, got %s", cfg.JobSubmissionDelay())
	}
	if cfg.StatusCheckInterval() != 60*time.Second {
		t.Fatalf("expected default poll interval 60s, got %s", cfg.StatusCheckInterval())
	}
	if cfg.JobTimeout() != 120*time.Minute {
		t.Fatalf("expected default job timeout 120m, got %s", cfg.JobTimeout())
	}
}

func TestLoad_OverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foldbatch.yaml")
	content := []byte("max_daily_jobs: 5\njob_submission_delay: 2\nstatus_check_interval: 1\ndelay_between_requests: 0.5\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MaxDailyJobs != 5 {
		t.Fatalf("expected max_daily_jobs 5, got %d", cfg.MaxDailyJobs)
	}
	if cfg.JobSubmissionDelay() != 2*time.Second {
		t.Fatalf("expected submission delay 2s, got %s", cfg.JobSubmissionDelay())
	}
	if cfg.DelayBetweenRequests() != 500*time.Millisecond {
		t.Fatalf("expected request delay 500ms, got %s", cfg.DelayBetweenRequests())
	}
	// untouched keys keep their defaults
	if cfg.MaxRetries != 3 {
		t.Fatalf("expected default max_retries 3, got %d", cfg.MaxRetries)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foldbatch.yaml")
	if err := os.WriteFile(path, []byte("max_daily_jobs: 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for zero quota")
	}
}
