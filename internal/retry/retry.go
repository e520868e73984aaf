// Package retry replays the failed items of a previous run from its
// persisted failure manifest. Successful entries from the original run
// are never touched or re-validated.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"foldbatch/internal/model"
	"foldbatch/internal/runstore"
)

// AttemptFunc re-runs the full operation sequence for one failed item
// and returns the result entry to append on success.
type AttemptFunc func(ctx context.Context, item model.Job) (model.RetryResult, error)

// Options for one retry pass.
type Options struct {
	MaxRetries   int
	RequestDelay time.Duration
}

// Coordinator rewrites a failure manifest in place as items are retried.
type Coordinator struct {
	manifestPath string
	attempt      AttemptFunc
	opts         Options
	logger       *zap.Logger
}

func NewCoordinator(manifestPath string, attempt AttemptFunc, opts Options, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{manifestPath: manifestPath, attempt: attempt, opts: opts, logger: logger}
}

// Result summarizes one retry pass.
type Result struct {
	Attempted   int
	Recovered   int
	StillFailed int
	Skipped     int
}

// Run retries every failed item still under the retry limit, moving
// successes into the successful-results list and incrementing the retry
// count on items that fail again. The manifest is rewritten in place.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	var manifest model.FailureManifest
	if err := runstore.ReadJSON(c.manifestPath, &manifest); err != nil {
		return Result{}, fmt.Errorf("load failure manifest: %w", err)
	}
	if len(manifest.FailedItems) == 0 {
		c.logger.Info("no failed items to retry", zap.String("manifest", c.manifestPath))
		return Result{}, nil
	}

	var res Result
	stillFailed := make([]model.FailedItem, 0, len(manifest.FailedItems))

	for i, item := range manifest.FailedItems {
		if err := ctx.Err(); err != nil {
			// keep everything not yet attempted
			stillFailed = append(stillFailed, manifest.FailedItems[i:]...)
			break
		}
		if item.RetryCount >= c.opts.MaxRetries {
			c.logger.Info("item exceeded retry limit",
				zap.String("job_name", item.ItemInfo.JobName),
				zap.Int("retry_count", item.RetryCount))
			stillFailed = append(stillFailed, item)
			res.Skipped++
			continue
		}

		res.Attempted++
		c.logger.Info("retrying failed item",
			zap.String("job_name", item.ItemInfo.JobName),
			zap.Int("attempt", item.RetryCount+1))

		result, err := c.attempt(ctx, item.ItemInfo)
		if err != nil {
			item.RetryCount++
			item.Error = fmt.Sprintf("retry %d: %v", item.RetryCount, err)
			stillFailed = append(stillFailed, item)
			res.StillFailed++
		} else {
			result.ItemInfo = item.ItemInfo
			result.RetryAttempt = true
			if result.DownloadTime == "" {
				result.DownloadTime = time.Now().UTC().Format(time.RFC3339)
			}
			manifest.SuccessfulResults = append(manifest.SuccessfulResults, result)
			res.Recovered++
		}

		if i < len(manifest.FailedItems)-1 && c.opts.RequestDelay > 0 {
			timer := time.NewTimer(c.opts.RequestDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	manifest.Timestamp = time.Now().UTC().Format(time.RFC3339)
	manifest.FailedItems = stillFailed
	manifest.Successful = len(manifest.SuccessfulResults)
	manifest.Failed = len(manifest.FailedItems)
	manifest.TotalItems = manifest.Successful + manifest.Failed

	if err := runstore.WriteJSON(c.manifestPath, manifest); err != nil {
		return res, fmt.Errorf("rewrite failure manifest: %w", err)
	}

	c.logger.Info("retry pass finished",
		zap.Int("attempted", res.Attempted),
		zap.Int("recovered", res.Recovered),
		zap.Int("still_failed", res.StillFailed),
		zap.Int("skipped", res.Skipped))
	return res, nil
}
