package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"foldbatch/internal/model"
)

// LoadJobs reads a JSON array of job descriptors. Jobs without an
// explicit name get one derived from protein, gene and locus. Every job
// must carry at least one sequence.
func LoadJobs(path string) ([]model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs file %s: %w", path, err)
	}
	var jobs []model.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("parse jobs file %s: %w", path, err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("jobs file %s contains no jobs", path)
	}

	seen := make(map[string]struct{}, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		if strings.TrimSpace(job.JobName) == "" {
			job.JobName = deriveJobName(*job)
		}
		if strings.TrimSpace(job.JobName) == "" {
			return nil, fmt.Errorf("job %d has no name and no fields to derive one from", i+1)
		}
		if strings.TrimSpace(job.ProteinSequence) == "" && strings.TrimSpace(job.DNASequence) == "" {
			return nil, fmt.Errorf("job %q has no sequence", job.JobName)
		}
		if _, dup := seen[job.JobName]; dup {
			return nil, fmt.Errorf("duplicate job name %q", job.JobName)
		}
		seen[job.JobName] = struct{}{}
	}
	return jobs, nil
}

// deriveJobName builds "protein_gene_locus" from whatever parts exist,
// with characters the server's form rejects replaced by underscores.
func deriveJobName(job model.Job) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{job.ProteinName, job.GeneName, job.ROILocus} {
		p = sanitizeNamePart(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

func sanitizeNamePart(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
