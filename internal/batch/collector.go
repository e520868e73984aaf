package batch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"foldbatch/internal/driver"
	"foldbatch/internal/model"
	"foldbatch/internal/runstore"
)

// Collector retrieves and organizes the results of one completed job.
type Collector struct {
	driver driver.Driver
	store  *runstore.Store
	logger *zap.Logger
}

func NewCollector(d driver.Driver, store *runstore.Store, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{driver: d, store: store, logger: logger}
}

// Collect downloads the job's results into a job-scoped directory,
// extracts the first archive found, and writes job_metadata.json. On
// download failure it returns a *DownloadError; the caller keeps the job
// id and metadata so results can be fetched out-of-band later.
func (c *Collector) Collect(ctx context.Context, job *model.Job) (string, error) {
	jobDir := c.store.JobDir(job.JobID)
	if err := runstore.Mkdir(jobDir); err != nil {
		return "", &DownloadError{JobID: job.JobID, Err: err}
	}

	if err := c.driver.Download(ctx, job.JobID, jobDir); err != nil {
		return "", &DownloadError{JobID: job.JobID, Err: err}
	}

	// Extraction is best effort: the download already succeeded, so a
	// malformed archive must not turn the job into a failure.
	if err := c.organizeResults(jobDir, *job); err != nil {
		c.logger.Warn("could not organize results",
			zap.String("job_id", job.JobID),
			zap.Error(err))
	}

	return jobDir, nil
}

func (c *Collector) organizeResults(jobDir string, job model.Job) error {
	archivePath, err := firstArchive(jobDir)
	if err != nil {
		return err
	}
	if archivePath == "" {
		return fmt.Errorf("no result archive found in %s", jobDir)
	}

	extractDir := filepath.Join(jobDir, "extracted")
	if err := runstore.Mkdir(extractDir); err != nil {
		return err
	}
	if err := extractZip(archivePath, extractDir); err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}

	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return fmt.Errorf("list extracted files: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	meta := model.JobMetadata{
		JobInfo:        job,
		ExtractionTime: time.Now().UTC().Format(time.RFC3339),
		ExtractedFiles: names,
	}
	return runstore.WriteJSON(filepath.Join(jobDir, "job_metadata.json"), meta)
}

// firstArchive returns the lexically first zip in dir, or "" if none.
func firstArchive(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list job directory %s: %w", dir, err)
	}
	zips := make([]string, 0, 1)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			zips = append(zips, e.Name())
		}
	}
	if len(zips) == 0 {
		return "", nil
	}
	sort.Strings(zips)
	return filepath.Join(dir, zips[0]), nil
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	cleanDest := filepath.Clean(destDir)
	for _, f := range r.File {
		target := filepath.Join(cleanDest, filepath.Clean("/"+f.Name))
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) && target != cleanDest {
			return fmt.Errorf("archive entry escapes destination: %q", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := copyZipEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func copyZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
