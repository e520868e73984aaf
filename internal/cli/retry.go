package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"foldbatch/internal/afserver"
	"foldbatch/internal/batch"
	"foldbatch/internal/config"
	"foldbatch/internal/driver"
	"foldbatch/internal/model"
	"foldbatch/internal/retry"
	"foldbatch/internal/runstore"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-attempt the failed downloads recorded in the failure manifest",
	Long: `Reads the failure manifest from the output directory and re-attempts
each failed item that is still under the retry limit. An item whose job
completed on the server since the original run has its result downloaded
and moves to the successful list; items that fail again have their retry
count incremented. Jobs that never got a server id cannot be retried
here; resubmit those with "foldbatch run".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		return executeRetry(cmd.Context(), cfg)
	},
}

func executeRetry(ctx context.Context, cfg config.Config) error {
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

	drv := afserver.NewDriver(session, logger)
	collector := batch.NewCollector(drv, store, logger)

	attempt := func(ctx context.Context, item model.Job) (model.RetryResult, error) {
		return retryDownload(ctx, drv, collector, item)
	}
	coordinator := retry.NewCoordinator(store.ManifestPath(), attempt, retryOptions(cfg), logger)
	result, err := coordinator.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "retry pass: %d attempted, %d recovered, %d still failed, %d skipped\n",
		result.Attempted, result.Recovered, result.StillFailed, result.Skipped)
	return nil
}

// retryDownload re-checks a failed job on the server and, if its
// prediction finished, downloads and organizes the result.
func retryDownload(ctx context.Context, drv driver.Driver, collector *batch.Collector, item model.Job) (model.RetryResult, error) {
	if item.JobID == "" {
		return model.RetryResult{}, fmt.Errorf("job %q was never submitted; resubmit it instead", item.JobName)
	}
	status, err := drv.PollStatus(ctx, item.JobID)
	if err != nil {
		return model.RetryResult{}, fmt.Errorf("poll job %s: %w", item.JobID, err)
	}
	if status != driver.StatusCompleted {
		return model.RetryResult{}, fmt.Errorf("job %s is %s on the server, not completed", item.JobID, status)
	}

	path, err := collector.Collect(ctx, &item)
	if err != nil {
		return model.RetryResult{}, err
	}
	item.Status = model.StatusDownloaded
	item.ResultsPath = path
	item.DownloadTime = time.Now().UTC().Format(time.RFC3339)
	item.Error = ""

	logger.Info("retry recovered job",
		zap.String("job", item.JobName),
		zap.String("job_id", item.JobID),
		zap.String("results", path))
	return model.RetryResult{
		ItemInfo:     item,
		ResultsPath:  path,
		DownloadTime: item.DownloadTime,
		RetryAttempt: true,
	}, nil
}
