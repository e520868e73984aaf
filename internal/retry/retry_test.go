package retry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foldbatch/internal/model"
	"foldbatch/internal/runstore"
)

func writeManifest(t *testing.T, manifest model.FailureManifest) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bulk_download_summary.json")
	require.NoError(t, runstore.WriteJSON(path, manifest))
	return path
}

func readManifest(t *testing.T, path string) model.FailureManifest {
	t.Helper()
	var m model.FailureManifest
	require.NoError(t, runstore.ReadJSON(path, &m))
	return m
}

func TestRun_MovesRecoveredItemsOutOfManifest(t *testing.T) {
	path := writeManifest(t, model.FailureManifest{
		TotalItems: 3,
		Successful: 1,
		Failed:     2,
		SuccessfulResults: []model.RetryResult{
			{ItemInfo: model.Job{JobName: "already-good"}, ResultsPath: "/data/good"},
		},
		FailedItems: []model.FailedItem{
			{ItemInfo: model.Job{JobName: "recoverable"}, Error: "timeout", RetryCount: 1},
			{ItemInfo: model.Job{JobName: "hopeless"}, Error: "bad sequence", RetryCount: 0},
		},
	})

	attempt := func(_ context.Context, item model.Job) (model.RetryResult, error) {
		if item.JobName == "recoverable" {
			return model.RetryResult{ResultsPath: "/data/recovered"}, nil
		}
		return model.RetryResult{}, errors.New("still broken")
	}

	c := NewCoordinator(path, attempt, Options{MaxRetries: 3}, zap.NewNop())
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Attempted)
	require.Equal(t, 1, res.Recovered)
	require.Equal(t, 1, res.StillFailed)

	m := readManifest(t, path)
	require.Equal(t, 2, m.Successful)
	require.Equal(t, 1, m.Failed)
	require.Equal(t, 3, m.TotalItems)

	// pre-existing successful entry is untouched
	require.Equal(t, "already-good", m.SuccessfulResults[0].ItemInfo.JobName)
	require.Equal(t, "/data/good", m.SuccessfulResults[0].ResultsPath)
	require.False(t, m.SuccessfulResults[0].RetryAttempt)

	// recovered item is appended and flagged
	require.Equal(t, "recoverable", m.SuccessfulResults[1].ItemInfo.JobName)
	require.True(t, m.SuccessfulResults[1].RetryAttempt)

	// still-failed item carries an incremented count and a retry note
	require.Equal(t, "hopeless", m.FailedItems[0].ItemInfo.JobName)
	require.Equal(t, 1, m.FailedItems[0].RetryCount)
	require.Contains(t, m.FailedItems[0].Error, "retry 1")
}

func TestRun_SkipsItemsPastRetryLimit(t *testing.T) {
	path := writeManifest(t, model.FailureManifest{
		TotalItems: 1,
		Failed:     1,
		FailedItems: []model.FailedItem{
			{ItemInfo: model.Job{JobName: "exhausted"}, Error: "nope", RetryCount: 3},
		},
	})

	attempt := func(context.Context, model.Job) (model.RetryResult, error) {
		t.Fatalf("attempt must not be called for exhausted items")
		return model.RetryResult{}, nil
	}

	c := NewCoordinator(path, attempt, Options{MaxRetries: 3}, zap.NewNop())
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, res.Attempted)
	require.Equal(t, 1, res.Skipped)

	m := readManifest(t, path)
	require.Len(t, m.FailedItems, 1)
	require.Equal(t, 3, m.FailedItems[0].RetryCount)
}

func TestRun_RetryCountOnlyIncreases(t *testing.T) {
	path := writeManifest(t, model.FailureManifest{
		TotalItems: 1,
		Failed:     1,
		FailedItems: []model.FailedItem{
			{ItemInfo: model.Job{JobName: "flaky"}, Error: "first failure", RetryCount: 0},
		},
	})

	attempt := func(context.Context, model.Job) (model.RetryResult, error) {
		return model.RetryResult{}, errors.New("transient")
	}

	c := NewCoordinator(path, attempt, Options{MaxRetries: 3}, zap.NewNop())
	for want := 1; want <= 3; want++ {
		_, err := c.Run(context.Background())
		require.NoError(t, err)
		m := readManifest(t, path)
		require.Len(t, m.FailedItems, 1)
		require.Equal(t, want, m.FailedItems[0].RetryCount)
	}

	// fourth pass: the item is past the limit and left alone
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, 3, readManifest(t, path).FailedItems[0].RetryCount)
}

func TestRun_EmptyManifestIsANoOp(t *testing.T) {
	path := writeManifest(t, model.FailureManifest{})
	c := NewCoordinator(path, nil, Options{MaxRetries: 3}, zap.NewNop())
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.Attempted)
}
