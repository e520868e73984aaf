// Package config loads runtime settings from an optional YAML file,
// filling in the defaults the orchestration expects.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OutputDir string `yaml:"output_dir"`

	// Seconds between one job reaching a terminal state and the next
	// submission. Protects the shared session; not an optimization.
	JobSubmissionDelaySec int `yaml:"job_submission_delay"`

	// Seconds between status polls for the in-flight job.
	StatusCheckIntervalSec int `yaml:"status_check_interval"`

	// Submission quota for one run.
	MaxDailyJobs int `yaml:"max_daily_jobs"`

	// Per-job monitoring timeout.
	JobTimeoutMinutes int `yaml:"job_timeout_minutes"`

	// Retry pass limit per failed item.
	MaxRetries int `yaml:"max_retries"`

	// Seconds between items during a bulk retry pass.
	DelayBetweenRequestsSec float64 `yaml:"delay_between_requests"`

	Browser BrowserConfig `yaml:"browser"`
}

type BrowserConfig struct {
	Headless    bool   `yaml:"headless"`
	Bin         string `yaml:"bin,omitempty"`
	DebuggerURL string `yaml:"debugger_url,omitempty"`
	ServerURL   string `yaml:"server_url,omitempty"`
}

func Default() Config {
	return Config{
		OutputDir:               "alphafold_batch_results",
		JobSubmissionDelaySec:   30,
		StatusCheckIntervalSec:  60,
		MaxDailyJobs:            30,
		JobTimeoutMinutes:       120,
		MaxRetries:              3,
		DelayBetweenRequestsSec: 1.5,
		Browser: BrowserConfig{
			Headless:  true,
			ServerURL: "https://alphafoldserver.com",
		},
	}
}

// Load reads path over the defaults. An empty path or a missing file
// yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.JobSubmissionDelaySec < 0 {
		return fmt.Errorf("job_submission_delay must not be negative")
	}
	if c.StatusCheckIntervalSec <= 0 {
		return fmt.Errorf("status_check_interval must be positive")
	}
	if c.MaxDailyJobs <= 0 {
		return fmt.Errorf("max_daily_jobs must be positive")
	}
	if c.JobTimeoutMinutes <= 0 {
		return fmt.Errorf("job_timeout_minutes must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

func (c Config) JobSubmissionDelay() time.Duration {
	return time.Duration(c.JobSubmissionDelaySec) * time.Second
}

func (c Config) StatusCheckInterval() time.Duration {
	return time.Duration(c.StatusCheckIntervalSec) * time.Second
}

func (c Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutMinutes) * time.Minute
}

func (c Config) DelayBetweenRequests() time.Duration {
	return time.Duration(c.DelayBetweenRequestsSec * float64(time.Second))
}
