package batch

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"foldbatch/internal/driver"
)

// scriptedJob describes how the fake driver behaves for one job name.
type scriptedJob struct {
	submitErr   error
	statuses    []driver.Status
	pollErrs    []error
	downloadErr error
}

// fakeDriver implements driver.Driver with scripted behavior per job
// name. Poll sequences are consumed one status per call; the last entry
// repeats once the script runs out.
type fakeDriver struct {
	mu        sync.Mutex
	scripts   map[string]*scriptedJob
	byID      map[string]*scriptedJob
	pollIdx   map[string]int
	downloads map[string]int
	submits   int
}

func newFakeDriver(scripts map[string]*scriptedJob) *fakeDriver {
	return &fakeDriver{
		scripts:   scripts,
		byID:      make(map[string]*scriptedJob),
		pollIdx:   make(map[string]int),
		downloads: make(map[string]int),
	}
}

func (d *fakeDriver) Submit(_ context.Context, spec driver.JobSpec) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	script, ok := d.scripts[spec.JobName]
	if !ok {
		return "", fmt.Errorf("no script for job %q", spec.JobName)
	}
	if script.submitErr != nil {
		return "", script.submitErr
	}
	d.submits++
	id := fmt.Sprintf("af-%d", d.submits)
	d.byID[id] = script
	return id, nil
}

func (d *fakeDriver) PollStatus(_ context.Context, jobID string) (driver.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	script, ok := d.byID[jobID]
	if !ok {
		return driver.StatusUnknown, errors.New("unknown job id")
	}
	idx := d.pollIdx[jobID]
	d.pollIdx[jobID] = idx + 1
	if idx < len(script.pollErrs) && script.pollErrs[idx] != nil {
		return driver.StatusUnknown, script.pollErrs[idx]
	}
	if len(script.statuses) == 0 {
		return driver.StatusUnknown, nil
	}
	if idx >= len(script.statuses) {
		idx = len(script.statuses) - 1
	}
	return script.statuses[idx], nil
}

func (d *fakeDriver) Download(_ context.Context, jobID, destDir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	script, ok := d.byID[jobID]
	if !ok {
		return errors.New("unknown job id")
	}
	d.downloads[jobID]++
	if script.downloadErr != nil {
		return script.downloadErr
	}
	return writeResultArchive(filepath.Join(destDir, jobID+"_results.zip"))
}

func (d *fakeDriver) downloadCount(jobID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.downloads[jobID]
}

// writeResultArchive creates a small zip resembling a prediction result.
func writeResultArchive(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := zip.NewWriter(f)
	for name, body := range map[string]string{
		"model_0.cif":  "data_model\n",
		"ranking.json": "{\"order\": [0]}\n",
	} {
		entry, err := w.Create(name)
		if err != nil {
			return err
		}
		if _, err := entry.Write([]byte(body)); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Close()
}
