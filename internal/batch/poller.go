package batch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"foldbatch/internal/driver"
)

// Poller repeatedly reads a job's status at a fixed interval until the
// driver reports a terminal status or the overall timeout elapses.
type Poller struct {
	driver   driver.Driver
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewPoller(d driver.Driver, interval, timeout time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{driver: d, interval: interval, timeout: timeout, logger: logger}
}

// Await blocks until the job reaches a terminal status. Poll errors and
// unrecognized statuses are transient: they are logged and the loop
// continues. When the timeout elapses first, Await returns a
// *TimeoutError. Closing stop wakes the inter-poll sleep immediately;
// it does not interrupt an in-flight poll call.
func (p *Poller) Await(ctx context.Context, jobID string, stop <-chan struct{}) (driver.Status, error) {
	deadline := time.Now().Add(p.timeout)
	checks := 0

	for time.Now().Before(deadline) {
		if stopRequested(stop) {
			return driver.StatusUnknown, ErrStopped
		}
		if ctx.Err() != nil {
			return driver.StatusUnknown, ErrStopped
		}

		checks++
		status, err := p.driver.PollStatus(ctx, jobID)
		if err != nil {
			// a failed read says nothing about the job itself
			p.logger.Warn("status poll failed",
				zap.String("job_id", jobID),
				zap.Int("check", checks),
				zap.Error(err))
			status = driver.StatusUnknown
		}

		if status.Terminal() {
			p.logger.Info("job reached terminal status",
				zap.String("job_id", jobID),
				zap.String("status", string(status)),
				zap.Int("checks", checks))
			return status, nil
		}

		p.logger.Debug("job still in progress",
			zap.String("job_id", jobID),
			zap.String("status", string(status)),
			zap.Int("check", checks))

		if !sleepInterruptible(ctx, p.interval, stop) {
			return driver.StatusUnknown, ErrStopped
		}
	}

	return driver.StatusUnknown, &TimeoutError{JobID: jobID, Elapsed: p.timeout}
}

// sleepInterruptible waits for d, returning false when the context was
// cancelled or the stop channel closed; either cuts the wait short. A
// nil stop channel never fires.
func sleepInterruptible(ctx context.Context, d time.Duration, stop <-chan struct{}) bool {
	if d <= 0 {
		return ctx.Err() == nil && !stopRequested(stop)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	case <-t.C:
	}
	return ctx.Err() == nil && !stopRequested(stop)
}

func stopRequested(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
