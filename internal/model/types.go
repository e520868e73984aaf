package model

// Job is one prediction unit tracked from submission through download.
// A job is owned by exactly one holder at a time: the pending queue, the
// controller's working slot, or a terminal list. Lifecycle fields
// (JobID, timestamps, error) stay empty until the job reaches that point.
type Job struct {
	JobName         string `json:"job_name"`
	ProteinName     string `json:"protein_name"`
	GeneName        string `json:"gene_name"`
	ROILocus        string `json:"roi_locus"`
	Accession       string `json:"accession,omitempty"`
	ProteinSequence string `json:"protein_sequence,omitempty"`
	DNASequence     string `json:"dna_sequence,omitempty"`
	CreatedTime     string `json:"created_time,omitempty"`

	JobID          string `json:"job_id,omitempty"`
	Status         string `json:"status,omitempty"`
	SubmissionTime string `json:"submission_time,omitempty"`
	DownloadTime   string `json:"download_time,omitempty"`
	ResultsPath    string `json:"results_path,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BatchRun summarizes one controller execution over a job list.
type BatchRun struct {
	RunID           string `json:"run_id,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time,omitempty"`
	TotalJobs       int    `json:"total_jobs"`
	Successful      int    `json:"successful"`
	Failed          int    `json:"failed"`
	CompletedJobs   []Job  `json:"completed_jobs"`
	FailedJobs      []Job  `json:"failed_jobs"`
	OutputDirectory string `json:"output_directory"`
}

// QueueSnapshot is the on-disk mirror of the queue. It always reflects
// the last consistent state before a blocking operation, so a crash
// loses at most the in-flight job's progress.
type QueueSnapshot struct {
	Timestamp     string `json:"timestamp"`
	JobsQueue     []Job  `json:"jobs_queue"`
	CompletedJobs []Job  `json:"completed_jobs"`
	FailedJobs    []Job  `json:"failed_jobs"`
}

// FailedItem is one entry in a failure manifest. RetryCount only grows.
type FailedItem struct {
	ItemInfo   Job    `json:"item_info"`
	Error      string `json:"error"`
	RetryCount int    `json:"retry_count"`
}

// RetryResult records an item that succeeded, either in the original run
// or on a later retry pass.
type RetryResult struct {
	ItemInfo     Job    `json:"item_info"`
	ResultsPath  string `json:"results_path,omitempty"`
	DownloadTime string `json:"download_time,omitempty"`
	RetryAttempt bool   `json:"retry_attempt,omitempty"`
}

// FailureManifest is the persisted record a retry pass operates on.
// Entries in SuccessfulResults are never touched once present.
type FailureManifest struct {
	Timestamp         string        `json:"timestamp"`
	TotalItems        int           `json:"total_items"`
	Successful        int           `json:"successful"`
	Failed            int           `json:"failed"`
	SuccessfulResults []RetryResult `json:"successful_results"`
	FailedItems       []FailedItem  `json:"failed_items"`
}

// JobMetadata is written next to a downloaded result after extraction.
type JobMetadata struct {
	JobInfo        Job      `json:"job_info"`
	ExtractionTime string   `json:"extraction_time"`
	ExtractedFiles []string `json:"extracted_files"`
}
