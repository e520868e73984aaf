package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"foldbatch/internal/afserver"
	"foldbatch/internal/batch"
	"foldbatch/internal/config"
	"foldbatch/internal/model"
	"foldbatch/internal/report"
	"foldbatch/internal/retry"
	"foldbatch/internal/runstore"
	"foldbatch/internal/ui"
)

var (
	flagJobsFile string
	flagMaxJobs  int
	flagPlain    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit a batch of jobs and track them to completion",
	Long: `Loads a JSON jobs file, submits each job to the server one at a time,
monitors it until it finishes and downloads the result. State is written
to the output directory after every step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		jobs, err := LoadJobs(flagJobsFile)
		if err != nil {
			return err
		}
		return executeBatch(cmd.Context(), cfg, jobs, false)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue an interrupted batch from its queue snapshot",
	Long: `Restores the pending queue from job_queue.json in the output directory
and continues processing. Jobs already in a terminal state keep their
results; a job that was mid-flight when the batch stopped is submitted
again from scratch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		return executeBatch(cmd.Context(), cfg, nil, true)
	},
}

func init() {
	runCmd.Flags().StringVar(&flagJobsFile, "jobs", "", "path to JSON jobs file (required)")
	_ = runCmd.MarkFlagRequired("jobs")
	for _, cmd := range []*cobra.Command{runCmd, resumeCmd} {
		cmd.Flags().IntVar(&flagMaxJobs, "max-jobs", 0, "override the daily submission quota")
		cmd.Flags().BoolVar(&flagPlain, "plain", false, "line-oriented output instead of the interactive view")
	}
}

// executeBatch owns the full lifecycle of one batch run or resume:
// session lock, browser session, controller, display, artifacts.
func executeBatch(ctx context.Context, cfg config.Config, jobs []model.Job, resume bool) error {
	store, err := runstore.New(cfg.OutputDir)
	if err != nil {
		return err
	}
	lock, err := runstore.AcquireSessionLock(cfg.OutputDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	session, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	ctrl := batch.NewController(afserver.NewDriver(session, logger), store, batch.Options{
		SubmissionDelay: cfg.JobSubmissionDelay(),
		PollInterval:    cfg.StatusCheckInterval(),
		JobTimeout:      cfg.JobTimeout(),
		MaxDailyJobs:    cfg.MaxDailyJobs,
	}, logger)

	if resume {
		err = ctrl.StartResumed(ctx, flagMaxJobs)
	} else {
		err = ctrl.Start(ctx, jobs, flagMaxJobs)
	}
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("interrupt received, stopping after current job")
			ctrl.Stop()
		case <-ctrl.Done():
		}
	}()

	total := len(jobs)
	if resume {
		if run := ctrl.Run(); run != nil {
			total = run.TotalJobs
		}
	}
	if flagPlain || !stdoutIsTTY() {
		ui.DrainPlain(ctrl.Events(), func(format string, args ...any) {
			fmt.Fprintf(os.Stdout, format, args...)
		})
	} else {
		if err := ui.RunProgress(ctrl.Events(), total, ctrl.Stop); err != nil {
			return fmt.Errorf("progress display: %w", err)
		}
	}
	<-ctrl.Done()

	run := ctrl.Run()
	if run == nil {
		return fmt.Errorf("batch produced no run record")
	}
	if err := writeArtifacts(store, *run); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "batch %s: %d successful, %d failed\n", run.RunID, run.Successful, run.Failed)
	fmt.Fprintf(os.Stdout, "summary: %s\n", store.SummaryPath())
	if run.Failed > 0 {
		fmt.Fprintf(os.Stdout, "failed jobs recorded in %s; re-attempt with \"foldbatch retry\"\n", store.ManifestPath())
	}
	return nil
}

// openSession reads credentials from the environment and establishes
// the browser session.
func openSession(ctx context.Context, cfg config.Config) (*afserver.Session, error) {
	email := os.Getenv("FOLDBATCH_EMAIL")
	password := os.Getenv("FOLDBATCH_PASSWORD")
	if email == "" || password == "" {
		return nil, fmt.Errorf("FOLDBATCH_EMAIL and FOLDBATCH_PASSWORD must be set")
	}
	return afserver.Open(ctx, afserver.Config{
		ServerURL:   cfg.Browser.ServerURL,
		Headless:    cfg.Browser.Headless,
		Bin:         cfg.Browser.Bin,
		DebuggerURL: cfg.Browser.DebuggerURL,
		Email:       email,
		Password:    password,
	}, logger)
}

// writeArtifacts persists the summary pair and, when jobs failed, the
// failure manifest the retry command consumes.
func writeArtifacts(store *runstore.Store, run model.BatchRun) error {
	if err := report.WriteSummary(store, run); err != nil {
		return err
	}
	if err := report.WriteCSV(store, run); err != nil {
		return err
	}
	if run.Failed == 0 {
		return nil
	}
	return writeFailureManifest(store, run)
}

// writeFailureManifest folds this run's failed jobs into the manifest,
// preserving retry counts from earlier passes and successes already
// recorded there. Failed items from earlier runs that this run did not
// touch are carried over; an earlier failure that completed this run is
// dropped from the failed list.
func writeFailureManifest(store *runstore.Store, run model.BatchRun) error {
	var manifest model.FailureManifest
	if err := runstore.ReadJSON(store.ManifestPath(), &manifest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	previous := make(map[string]model.FailedItem, len(manifest.FailedItems))
	for _, item := range manifest.FailedItems {
		previous[item.ItemInfo.JobName] = item
	}
	thisRun := make(map[string]struct{}, len(run.FailedJobs)+len(run.CompletedJobs))

	items := make([]model.FailedItem, 0, len(run.FailedJobs))
	for _, job := range run.FailedJobs {
		thisRun[job.JobName] = struct{}{}
		item := model.FailedItem{ItemInfo: job, Error: job.Error}
		if prev, ok := previous[job.JobName]; ok {
			item.RetryCount = prev.RetryCount
		}
		items = append(items, item)
	}
	for _, job := range run.CompletedJobs {
		thisRun[job.JobName] = struct{}{}
	}
	for _, item := range manifest.FailedItems {
		if _, touched := thisRun[item.ItemInfo.JobName]; !touched {
			items = append(items, item)
		}
	}

	results := manifest.SuccessfulResults
	if results == nil {
		results = []model.RetryResult{}
	}
	manifest = model.FailureManifest{
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		TotalItems:        len(items) + len(results),
		Successful:        len(results),
		Failed:            len(items),
		SuccessfulResults: results,
		FailedItems:       items,
	}
	if err := runstore.WriteJSON(store.ManifestPath(), manifest); err != nil {
		return fmt.Errorf("write failure manifest: %w", err)
	}
	return nil
}

func stdoutIsTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// retryOptions maps config onto a retry pass.
func retryOptions(cfg config.Config) retry.Options {
	return retry.Options{
		MaxRetries:   cfg.MaxRetries,
		RequestDelay: cfg.DelayBetweenRequests(),
	}
}
