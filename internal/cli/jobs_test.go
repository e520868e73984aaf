package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writeJobsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write jobs file: %v", err)
	}
	return path
}

func TestLoadJobs(t *testing.T) {
	path := writeJobsFile(t, `[
		{"job_name": "p53_wt", "protein_sequence": "MEEPQSDPSV"},
		{"protein_name": "BRCA1", "gene_name": "BRCA1", "roi_locus": "17q21.31", "dna_sequence": "ATGGATTTATCTGCT"}
	]`)
	jobs, err := LoadJobs(path)
	if err != nil {
		t.Fatalf("LoadJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[0].JobName != "p53_wt" {
		t.Fatalf("explicit name not kept: %q", jobs[0].JobName)
	}
	if jobs[1].JobName != "BRCA1_BRCA1_17q21_31" {
		t.Fatalf("derived name = %q", jobs[1].JobName)
	}
}

func TestLoadJobsRejectsMissingSequence(t *testing.T) {
	path := writeJobsFile(t, `[{"job_name": "empty"}]`)
	if _, err := LoadJobs(path); err == nil {
		t.Fatal("expected error for job without sequence")
	}
}

func TestLoadJobsRejectsDuplicateNames(t *testing.T) {
	path := writeJobsFile(t, `[
		{"job_name": "dup", "protein_sequence": "AAAA"},
		{"job_name": "dup", "protein_sequence": "CCCC"}
	]`)
	if _, err := LoadJobs(path); err == nil {
		t.Fatal("expected error for duplicate names")
	}
}

func TestLoadJobsRejectsEmptyFile(t *testing.T) {
	path := writeJobsFile(t, `[]`)
	if _, err := LoadJobs(path); err == nil {
		t.Fatal("expected error for empty job list")
	}
}

func TestSanitizeNamePart(t *testing.T) {
	cases := map[string]string{
		"17q21.31":  "17q21_31",
		"  p53  ":   "p53",
		"a b/c":     "a_b_c",
		"___":       "",
		"ok-name_1": "ok-name_1",
	}
	for in, want := range cases {
		if got := sanitizeNamePart(in); got != want {
			t.Fatalf("sanitizeNamePart(%q) = %q, want %q", in, got, want)
		}
	}
}
