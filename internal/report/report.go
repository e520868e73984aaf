// Package report renders a finished batch run into its two co-equal
// artifacts: the JSON manifest and the flattened CSV export.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"foldbatch/internal/model"
	"foldbatch/internal/runstore"
)

// CSVHeader is the fixed column schema of the tabular export.
var CSVHeader = []string{
	"Job Name",
	"Protein Name",
	"Gene Name",
	"ROI Locus",
	"Job ID",
	"Status",
	"Submission Time",
	"Download Time",
	"Results Path",
	"Error",
}

// WriteSummary writes batch_summary.json for the run.
func WriteSummary(store *runstore.Store, run model.BatchRun) error {
	if run.CompletedJobs == nil {
		run.CompletedJobs = []model.Job{}
	}
	if run.FailedJobs == nil {
		run.FailedJobs = []model.Job{}
	}
	return runstore.WriteJSON(store.SummaryPath(), run)
}

// WriteCSV writes the flattened per-job table. Fields a job never
// reached (e.g. a job id for a job that failed submission) render as the
// literal "N/A" so every row has a uniform shape.
func WriteCSV(store *runstore.Store, run model.BatchRun) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, job := range append(append([]model.Job{}, run.CompletedJobs...), run.FailedJobs...) {
		if err := w.Write(csvRow(job)); err != nil {
			return fmt.Errorf("write CSV row for %s: %w", job.JobName, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush summary CSV: %w", err)
	}
	// same temp-file+rename discipline as every other artifact
	return runstore.WriteBytes(store.SummaryCSVPath(), buf.Bytes())
}

func csvRow(job model.Job) []string {
	status := job.Status
	if status == "" {
		status = model.StatusFailed
	}
	return []string{
		orNA(job.JobName),
		orNA(job.ProteinName),
		orNA(job.GeneName),
		orNA(job.ROILocus),
		orNA(job.JobID),
		status,
		orNA(job.SubmissionTime),
		orNA(job.DownloadTime),
		orNA(job.ResultsPath),
		orNA(job.Error),
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
