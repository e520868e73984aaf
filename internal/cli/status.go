package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"foldbatch/internal/afserver"
	"foldbatch/internal/config"
	"foldbatch/internal/model"
	"foldbatch/internal/runstore"
)

var flagRefresh bool

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show tracked job state, for one job or the whole batch",
	Long: `Without arguments, lists every tracked job with its last recorded
state. With a job id, shows that job's full record. --refresh polls the
server for the job's current state before printing (requires a browser
session and credentials).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		store, err := runstore.New(cfg.OutputDir)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return printAllJobs(store)
		}
		return printOneJob(cmd, cfg, store, args[0])
	},
}

func init() {
	statusCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "poll the server for current state first")
}

func printAllJobs(store *runstore.Store) error {
	jobs, err := store.ListTrackedJobs()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stdout, "no tracked jobs")
		return nil
	}
	for _, job := range jobs {
		fmt.Fprintf(os.Stdout, "%-40s  %-18s  %s\n", job.JobName, job.Status, job.JobID)
	}
	return nil
}

func printOneJob(cmd *cobra.Command, cfg config.Config, store *runstore.Store, jobID string) error {
	job, err := store.LoadJob(jobID)
	if err != nil {
		return fmt.Errorf("job %s is not tracked: %w", jobID, err)
	}

	if flagRefresh {
		session, err := openSession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()
		status, err := afserver.NewDriver(session, logger).PollStatus(cmd.Context(), jobID)
		if err != nil {
			return fmt.Errorf("poll job %s: %w", jobID, err)
		}
		fmt.Fprintf(os.Stdout, "server state: %s\n", status)
	}

	printJob(job)
	return nil
}

func printJob(job model.Job) {
	fmt.Fprintf(os.Stdout, "job:        %s\n", job.JobName)
	fmt.Fprintf(os.Stdout, "id:         %s\n", job.JobID)
	fmt.Fprintf(os.Stdout, "status:     %s\n", job.Status)
	if job.ProteinName != "" {
		fmt.Fprintf(os.Stdout, "protein:    %s\n", job.ProteinName)
	}
	if job.GeneName != "" {
		fmt.Fprintf(os.Stdout, "gene:       %s\n", job.GeneName)
	}
	if job.SubmissionTime != "" {
		fmt.Fprintf(os.Stdout, "submitted:  %s\n", job.SubmissionTime)
	}
	if job.DownloadTime != "" {
		fmt.Fprintf(os.Stdout, "downloaded: %s\n", job.DownloadTime)
	}
	if job.ResultsPath != "" {
		fmt.Fprintf(os.Stdout, "results:    %s\n", job.ResultsPath)
	}
	if job.Error != "" {
		fmt.Fprintf(os.Stdout, "error:      %s\n", job.Error)
	}
}
